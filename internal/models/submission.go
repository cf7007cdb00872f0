// internal/models/submission.go
package models

import "time"

// Slot names one answer of the questionnaire.
type Slot string

const (
	SlotName            Slot = "name"
	SlotTenure          Slot = "tenure"
	SlotPreference      Slot = "preference"
	SlotMotivation      Slot = "motivation"
	SlotFeedback        Slot = "feedback"
	SlotConfidentiality Slot = "confidentiality"
)

// Slots lists every slot in question order.
var Slots = []Slot{
	SlotName,
	SlotTenure,
	SlotPreference,
	SlotMotivation,
	SlotFeedback,
	SlotConfidentiality,
}

// Enumerated answers for the two consent questions.
const (
	ChoiceYes       = "yes"
	ChoiceSometimes = "sometimes"
	ChoiceNo        = "no"
)

// Answers holds the six questionnaire answers.
type Answers struct {
	Name            string `json:"name"`
	Tenure          string `json:"tenure"`
	Preference      string `json:"preference"`
	Motivation      string `json:"motivation"`
	Feedback        string `json:"feedback"`
	Confidentiality string `json:"confidentiality"`
}

// Get returns the answer stored under slot.
func (a Answers) Get(slot Slot) string {
	switch slot {
	case SlotName:
		return a.Name
	case SlotTenure:
		return a.Tenure
	case SlotPreference:
		return a.Preference
	case SlotMotivation:
		return a.Motivation
	case SlotFeedback:
		return a.Feedback
	case SlotConfidentiality:
		return a.Confidentiality
	}
	return ""
}

// With returns a copy of a with slot set to value.
func (a Answers) With(slot Slot, value string) Answers {
	switch slot {
	case SlotName:
		a.Name = value
	case SlotTenure:
		a.Tenure = value
	case SlotPreference:
		a.Preference = value
	case SlotMotivation:
		a.Motivation = value
	case SlotFeedback:
		a.Feedback = value
	case SlotConfidentiality:
		a.Confidentiality = value
	}
	return a
}

// Complete reports whether every slot holds a value.
func (a Answers) Complete() bool {
	for _, s := range Slots {
		if a.Get(s) == "" {
			return false
		}
	}
	return true
}

// ToMap is used for schema validation and notification payloads.
func (a Answers) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(Slots))
	for _, s := range Slots {
		out[string(s)] = a.Get(s)
	}
	return out
}

// Submission is a completed questionnaire awaiting a moderation decision.
type Submission struct {
	ApplicantID uint64    `json:"applicantId" db:"applicant_id"`
	DisplayName string    `json:"displayName,omitempty" db:"display_name"`
	Answers     Answers   `json:"answers"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
