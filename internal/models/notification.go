// internal/models/notification.go
package models

// Button is an inline control. Exactly one of CallbackData or URL is set.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callbackData,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Keyboard is a grid of inline controls attached to an outbound message.
type Keyboard struct {
	Rows [][]Button `json:"rows"`
}

// Row is a convenience constructor for a one-row keyboard.
func Row(buttons ...Button) *Keyboard {
	return &Keyboard{Rows: [][]Button{buttons}}
}

// DecidedEvent is published to the events topic once a decision is recorded.
type DecidedEvent struct {
	EventID     string   `json:"eventId"`
	Type        string   `json:"type"`
	ApplicantID uint64   `json:"applicantId"`
	ModeratorID int64    `json:"moderatorId"`
	Decision    Decision `json:"decision"`
	DecidedAt   string   `json:"decidedAt"` // RFC 3339
	Notified    bool     `json:"notified"`
}
