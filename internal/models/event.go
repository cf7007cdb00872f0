// internal/models/event.go
package models

import "time"

// EventKind classifies an inbound event.
type EventKind string

const (
	EventBegin    EventKind = "begin"
	EventText     EventKind = "text"
	EventChoice   EventKind = "choice"
	EventCancel   EventKind = "cancel"
	EventDecision EventKind = "decision"
	EventAdmin    EventKind = "admin"
)

// Admin actions carried in Event.Value for EventAdmin.
const (
	AdminOpenPanel = "panel"
	AdminStats     = "stats"
	AdminBack      = "back"
	AdminApproved  = "approved"
	AdminPurge     = "purge"
)

// Event is one inbound occurrence routed through the dispatcher.
//
// ApplicantID is the routing key: the sender for applicant events, the target
// applicant for decision and purge events, the moderator for panel events.
type Event struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	ApplicantID uint64    `json:"applicantId"`
	ChatID      int64     `json:"chatId"`
	DisplayName string    `json:"displayName,omitempty"`
	Value       string    `json:"value,omitempty"`
	// Slot names the question a choice control belongs to.
	Slot        Slot      `json:"slot,omitempty"`
	Page        int       `json:"page,omitempty"`
	Decision    Decision  `json:"decision,omitempty"`
	ModeratorID int64     `json:"moderatorId,omitempty"`
	CallbackID  string    `json:"callbackId,omitempty"`
	MessageID   int64     `json:"messageId,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`
}
