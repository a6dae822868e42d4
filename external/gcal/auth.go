package gcal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// calendarScope grants full event read/write. Changing scopes invalidates the
// cached token file.
const calendarScope = "https://www.googleapis.com/auth/calendar"

// NewAuthorizedHTTPClient builds an HTTP client whose transport injects and
// refreshes the OAuth token. Refreshed tokens are written back to tokenPath so
// the refresh survives the process. base, when non-nil, becomes the underlying
// transport (used for tracing instrumentation).
func NewAuthorizedHTTPClient(ctx context.Context, credentialsPath, tokenPath string, base http.RoundTripper) (*http.Client, error) {
	conf, err := loadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}

	token, err := readTokenFile(tokenPath)
	if err != nil {
		return nil, crerr.Wrapf(err, "no usable token at %s, run with -authorize first", tokenPath)
	}

	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
	}

	source := &persistingTokenSource{
		inner: conf.TokenSource(ctx, token),
		path:  tokenPath,
		last:  token.AccessToken,
	}

	return oauth2.NewClient(ctx, source), nil
}

// Authorize runs the installed-app flow once: prints the consent URL, reads
// the verification code from in, and caches the exchanged token at tokenPath.
func Authorize(ctx context.Context, credentialsPath, tokenPath string, in io.Reader, out io.Writer) error {
	conf, err := loadOAuthConfig(credentialsPath)
	if err != nil {
		return err
	}

	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following URL in a browser, approve access, then paste the code here:\n%s\n\ncode: ", authURL)

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return crerr.Wrap(err, "read verification code")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return crerr.Wrap(err, "exchange verification code")
	}

	if err := writeTokenFile(tokenPath, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "token cached at %s\n", tokenPath)
	return nil
}

func loadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, crerr.Wrapf(err, "read credentials %s", credentialsPath)
	}
	conf, err := google.ConfigFromJSON(raw, calendarScope)
	if err != nil {
		return nil, crerr.Wrap(err, "parse oauth credentials")
	}
	return conf, nil
}

func readTokenFile(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := sonic.Unmarshal(raw, &token); err != nil {
		return nil, crerr.Wrap(err, "decode token file")
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, crerr.New("token file is empty")
	}
	return &token, nil
}

func writeTokenFile(path string, token *oauth2.Token) error {
	raw, err := sonic.MarshalIndent(token, "", "  ")
	if err != nil {
		return crerr.Wrap(err, "encode token")
	}
	// 0600: the token authorizes calendar writes.
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return crerr.Wrapf(err, "write token file %s", path)
	}
	return nil
}

// persistingTokenSource saves tokens back to disk whenever the wrapped source
// refreshes them, mirroring what the original desktop auth flow did.
type persistingTokenSource struct {
	mu    sync.Mutex
	inner oauth2.TokenSource
	path  string
	last  string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		if writeErr := writeTokenFile(s.path, token); writeErr == nil {
			s.last = token.AccessToken
		}
	}
	return token, nil
}
