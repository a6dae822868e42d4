package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matchcal/matchcal/internal/platform/logging"
)

// Config stores runtime configuration for the sync engine.
type Config struct {
	AppEnv         string `validate:"required,oneof=dev stage prod"`
	ServiceName    string `validate:"required"`
	ServiceVersion string `validate:"required"`
	LogLevel       logging.Level

	CalendarID        string        `validate:"required"`
	EventTimeZone     string        `validate:"required"`
	EventDuration     time.Duration `validate:"gt=0"`
	ReminderLeads     []ReminderLead `validate:"dive"`
	OwnershipMarker   string        `validate:"required"`
	ProvisionalTag    string        `validate:"required"`
	SyncCreateWorkers int           `validate:"min=1"`

	StateFilePath string `validate:"required"`
	LockFilePath  string `validate:"required"`

	GoogleCredentialsPath string `validate:"required"`
	GoogleTokenPath       string `validate:"required"`

	GCalBaseURL               string
	GCalTimeout               time.Duration `validate:"gt=0"`
	GCalMaxRetries            int           `validate:"min=0"`
	GCalListWindow            time.Duration `validate:"gt=0"`
	GCalCircuitEnabled        bool
	GCalCircuitFailureCount   int           `validate:"min=1"`
	GCalCircuitOpenTimeout    time.Duration `validate:"gt=0"`
	GCalCircuitHalfOpenMaxReq int           `validate:"min=1"`

	MHFCBaseURL   string
	MHFCTimeout   time.Duration `validate:"gt=0"`
	MHFCLookahead time.Duration `validate:"gt=0"`

	DaemonCronSpec string `validate:"required"`

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// ReminderLead is one reminder attached to every synced event.
type ReminderLead struct {
	Method  string `validate:"required,oneof=email popup"`
	Minutes int    `validate:"min=1"`
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	eventDuration, err := time.ParseDuration(getEnv("EVENT_DURATION", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse EVENT_DURATION: %w", err)
	}
	if eventDuration <= 0 {
		return Config{}, fmt.Errorf("EVENT_DURATION must be > 0")
	}

	reminderLeads, err := parseReminderLeads(getEnv("EVENT_REMINDERS", "email:1440,popup:60"))
	if err != nil {
		return Config{}, fmt.Errorf("parse EVENT_REMINDERS: %w", err)
	}

	syncCreateWorkers, err := getEnvAsInt("SYNC_CREATE_WORKERS", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_CREATE_WORKERS: %w", err)
	}
	if syncCreateWorkers < 1 {
		return Config{}, fmt.Errorf("SYNC_CREATE_WORKERS must be >= 1")
	}

	gcalTimeout, err := time.ParseDuration(getEnv("GCAL_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GCAL_TIMEOUT: %w", err)
	}
	gcalMaxRetries, err := getEnvAsInt("GCAL_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse GCAL_MAX_RETRIES: %w", err)
	}
	if gcalMaxRetries < 0 {
		return Config{}, fmt.Errorf("GCAL_MAX_RETRIES must be >= 0")
	}
	gcalListWindow, err := time.ParseDuration(getEnv("GCAL_LIST_WINDOW", "8760h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GCAL_LIST_WINDOW: %w", err)
	}
	gcalCircuitEnabled, err := strconv.ParseBool(getEnv("GCAL_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GCAL_CIRCUIT_ENABLED: %w", err)
	}
	gcalCircuitFailureCount, err := getEnvAsInt("GCAL_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse GCAL_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if gcalCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("GCAL_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	gcalCircuitOpenTimeout, err := time.ParseDuration(getEnv("GCAL_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GCAL_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if gcalCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("GCAL_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	gcalCircuitHalfOpenMaxReq, err := getEnvAsInt("GCAL_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse GCAL_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if gcalCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("GCAL_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	mhfcTimeout, err := time.ParseDuration(getEnv("MHFC_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MHFC_TIMEOUT: %w", err)
	}
	mhfcLookahead, err := time.ParseDuration(getEnv("MHFC_LOOKAHEAD", "2880h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MHFC_LOOKAHEAD: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "matchcal"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		CalendarID:        strings.TrimSpace(getEnv("CALENDAR_ID", "primary")),
		EventTimeZone:     strings.TrimSpace(getEnv("EVENT_TIMEZONE", "Asia/Jerusalem")),
		EventDuration:     eventDuration,
		ReminderLeads:     reminderLeads,
		OwnershipMarker:   strings.TrimSpace(getEnv("EVENT_OWNERSHIP_MARKER", "Synced by matchcal")),
		ProvisionalTag:    strings.TrimSpace(getEnv("EVENT_PROVISIONAL_TAG", "(provisional)")),
		SyncCreateWorkers: syncCreateWorkers,

		StateFilePath: strings.TrimSpace(getEnv("STATE_FILE_PATH", "sync_state.json")),
		LockFilePath:  strings.TrimSpace(getEnv("LOCK_FILE_PATH", ".matchcal.lock")),

		GoogleCredentialsPath: strings.TrimSpace(getEnv("GOOGLE_CREDENTIALS_PATH", "credentials.json")),
		GoogleTokenPath:       strings.TrimSpace(getEnv("GOOGLE_TOKEN_PATH", "token.json")),

		GCalBaseURL:               strings.TrimSpace(getEnv("GCAL_BASE_URL", "")),
		GCalTimeout:               gcalTimeout,
		GCalMaxRetries:            gcalMaxRetries,
		GCalListWindow:            gcalListWindow,
		GCalCircuitEnabled:        gcalCircuitEnabled,
		GCalCircuitFailureCount:   gcalCircuitFailureCount,
		GCalCircuitOpenTimeout:    gcalCircuitOpenTimeout,
		GCalCircuitHalfOpenMaxReq: gcalCircuitHalfOpenMaxReq,

		MHFCBaseURL:   strings.TrimSpace(getEnv("MHFC_BASE_URL", "")),
		MHFCTimeout:   mhfcTimeout,
		MHFCLookahead: mhfcLookahead,

		DaemonCronSpec: strings.TrimSpace(getEnv("DAEMON_CRON_SPEC", "@every 6h")),

		PprofEnabled: pprofEnabled,
		PprofAddr:    pprofAddr,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	if _, err := time.LoadLocation(cfg.EventTimeZone); err != nil {
		return Config{}, fmt.Errorf("invalid EVENT_TIMEZONE %q: %w", cfg.EventTimeZone, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// parseReminderLeads parses "method:minutes" pairs, e.g. "email:1440,popup:60".
func parseReminderLeads(raw string) ([]ReminderLead, error) {
	parts := strings.Split(raw, ",")
	out := make([]ReminderLead, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		segments := strings.SplitN(item, ":", 2)
		if len(segments) != 2 {
			return nil, fmt.Errorf("invalid reminder %q, expected method:minutes", item)
		}
		method := strings.ToLower(strings.TrimSpace(segments[0]))
		minutes, err := strconv.Atoi(strings.TrimSpace(segments[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid minutes in reminder %q: %w", item, err)
		}
		if minutes < 1 {
			return nil, fmt.Errorf("minutes must be >= 1 in reminder %q", item)
		}

		out = append(out, ReminderLead{Method: method, Minutes: minutes})
	}
	return out, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
