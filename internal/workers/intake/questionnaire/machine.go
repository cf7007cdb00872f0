// internal/workers/intake/questionnaire/machine.go
package questionnaire

import (
	"strings"
	"unicode/utf8"

	"applicant-gate/internal/common/validation"
	"applicant-gate/internal/models"
)

// FeedbackChoices and ConfidentialityChoices are the enumerated answers of the
// two consent questions.
var (
	FeedbackChoices        = []string{models.ChoiceYes, models.ChoiceSometimes, models.ChoiceNo}
	ConfidentialityChoices = []string{models.ChoiceYes, models.ChoiceNo}
)

// DefaultTable is the six-question flow in fixed order.
var DefaultTable = map[State]Step{
	AwaitingName:                   {Slot: models.SlotName, Accepts: InputText, Next: AwaitingTenure},
	AwaitingTenure:                 {Slot: models.SlotTenure, Accepts: InputText, Next: AwaitingPreference},
	AwaitingPreference:             {Slot: models.SlotPreference, Accepts: InputText, Next: AwaitingMotivation},
	AwaitingMotivation:             {Slot: models.SlotMotivation, Accepts: InputText, Next: AwaitingFeedbackConsent},
	AwaitingFeedbackConsent:        {Slot: models.SlotFeedback, Accepts: InputChoice, Choices: FeedbackChoices, Next: AwaitingConfidentialityConsent},
	AwaitingConfidentialityConsent: {Slot: models.SlotConfidentiality, Accepts: InputChoice, Choices: ConfidentialityChoices, Next: Complete},
}

// Machine drives a questionnaire from (state, input) pairs. It keeps no
// state of its own and never talks to the transport or the store.
type Machine struct {
	table map[State]Step
	start State
}

func NewMachine() *Machine {
	return &Machine{table: DefaultTable, start: AwaitingName}
}

// Start is the state a fresh session begins in.
func (m *Machine) Start() State {
	return m.start
}

// PromptFor returns the outstanding question of state, or nil for terminal
// and unknown states.
func (m *Machine) PromptFor(state State) *Prompt {
	step, ok := m.table[state]
	if !ok {
		return nil
	}
	return &Prompt{State: state, Slot: step.Slot, Choices: step.Choices}
}

// Apply stores a well-formed answer and advances, or reports Ignored and
// leaves state and answers untouched.
func (m *Machine) Apply(state State, answers models.Answers, in Input) Transition {
	step, ok := m.table[state]
	if !ok {
		return Transition{Outcome: Ignored, State: state, Answers: answers}
	}

	if in.Kind == InputCancel {
		return Transition{Outcome: Cancelled, State: state, Answers: answers}
	}

	value, ok := accept(step, in)
	if !ok {
		return Transition{Outcome: Ignored, State: state, Answers: answers, Prompt: m.PromptFor(state)}
	}

	answers = answers.With(step.Slot, value)
	if step.Next == Complete {
		return Transition{Outcome: Completed, State: Complete, Answers: answers}
	}
	return Transition{Outcome: Advanced, State: step.Next, Answers: answers, Prompt: m.PromptFor(step.Next)}
}

func accept(step Step, in Input) (string, bool) {
	if in.Kind != step.Accepts {
		return "", false
	}
	if in.Slot != "" && in.Slot != step.Slot {
		return "", false
	}

	switch step.Accepts {
	case InputText:
		value := strings.TrimSpace(in.Value)
		if value == "" || utf8.RuneCountInString(value) > validation.MaxAnswerLength {
			return "", false
		}
		return value, true
	case InputChoice:
		for _, c := range step.Choices {
			if in.Value == c {
				return c, true
			}
		}
	}
	return "", false
}
