// internal/workers/intake/questionnaire/models.go
package questionnaire

import "applicant-gate/internal/models"

// State is a position in the questionnaire. Each non-terminal state has
// exactly one outstanding question.
type State int

const (
	AwaitingName State = iota + 1
	AwaitingTenure
	AwaitingPreference
	AwaitingMotivation
	AwaitingFeedbackConsent
	AwaitingConfidentialityConsent
	Complete
)

var stateNames = map[State]string{
	AwaitingName:                   "awaiting_name",
	AwaitingTenure:                 "awaiting_tenure",
	AwaitingPreference:             "awaiting_preference",
	AwaitingMotivation:             "awaiting_motivation",
	AwaitingFeedbackConsent:        "awaiting_feedback_consent",
	AwaitingConfidentialityConsent: "awaiting_confidentiality_consent",
	Complete:                       "complete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further input is accepted.
func (s State) Terminal() bool {
	return s == Complete
}

// InputKind is what a step accepts.
type InputKind string

const (
	InputText   InputKind = "text"
	InputChoice InputKind = "choice"
	InputCancel InputKind = "cancel"
)

// Input is one applicant action fed to the machine. Slot, when set on a
// choice, must match the outstanding question.
type Input struct {
	Kind  InputKind
	Value string
	Slot  models.Slot
}

func Text(value string) Input   { return Input{Kind: InputText, Value: value} }
func Choice(value string) Input { return Input{Kind: InputChoice, Value: value} }
func Cancel() Input             { return Input{Kind: InputCancel} }

// ChoiceFor is a choice pressed on the control of a specific question.
func ChoiceFor(slot models.Slot, value string) Input {
	return Input{Kind: InputChoice, Value: value, Slot: slot}
}

// Step is one row of the transition table.
type Step struct {
	Slot    models.Slot
	Accepts InputKind
	Choices []string
	Next    State
}

// Prompt is what the transport needs to ask the outstanding question.
type Prompt struct {
	State   State
	Slot    models.Slot
	Choices []string
}

// Outcome classifies the result of applying an input.
type Outcome string

const (
	Ignored   Outcome = "ignored"
	Advanced  Outcome = "advanced"
	Cancelled Outcome = "cancelled"
	Completed Outcome = "completed"
)

// Transition is the pure result of Machine.Apply.
type Transition struct {
	Outcome Outcome
	State   State
	Answers models.Answers
	// Prompt is the question now outstanding; nil once the machine has left
	// the non-terminal states.
	Prompt *Prompt
}

var choiceLabels = map[string]string{
	models.ChoiceYes:       "Yes",
	models.ChoiceSometimes: "Sometimes",
	models.ChoiceNo:        "No",
}

// ChoiceLabel is the human label of an enumerated answer.
func ChoiceLabel(value string) string {
	if label, ok := choiceLabels[value]; ok {
		return label
	}
	return value
}
