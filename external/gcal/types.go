package gcal

// Wire shapes for the Google Calendar v3 events API, limited to the fields
// the engine reads and writes.

type eventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type reminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type eventReminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []reminderOverride `json:"overrides,omitempty"`
}

type wireEvent struct {
	ID          string          `json:"id,omitempty"`
	Status      string          `json:"status,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Location    string          `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	Start       *eventDateTime  `json:"start,omitempty"`
	End         *eventDateTime  `json:"end,omitempty"`
	Reminders   *eventReminders `json:"reminders,omitempty"`
}

type eventListEnvelope struct {
	Items         []wireEvent `json:"items"`
	NextPageToken string      `json:"nextPageToken"`
}
