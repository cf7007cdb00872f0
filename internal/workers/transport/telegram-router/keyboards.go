// internal/workers/transport/telegram-router/keyboards.go
package telegramrouter

import (
	"fmt"
	"strconv"
	"strings"

	"applicant-gate/internal/models"
	adminpanel "applicant-gate/internal/workers/admin/admin-panel"
	"applicant-gate/internal/workers/intake/questionnaire"
)

// Callback data prefixes.
const (
	callbackFeedback        = "fb:"
	callbackConfidentiality = "conf:"
	callbackAdmin           = "admin:"
)

var choicePrefixes = map[models.Slot]string{
	models.SlotFeedback:        callbackFeedback,
	models.SlotConfidentiality: callbackConfidentiality,
}

// promptKeyboard renders the choices of a prompt, or nil for free-text questions.
func promptKeyboard(p *questionnaire.Prompt) *models.Keyboard {
	if p == nil || len(p.Choices) == 0 {
		return nil
	}
	prefix := choicePrefixes[p.Slot]
	row := make([]models.Button, 0, len(p.Choices))
	for _, c := range p.Choices {
		row = append(row, models.Button{Text: questionnaire.ChoiceLabel(c), CallbackData: prefix + c})
	}
	return models.Row(row...)
}

// parseChoice maps fb:<v> and conf:<v> back to a slot and value.
func parseChoice(data string) (models.Slot, string, bool) {
	for slot, prefix := range choicePrefixes {
		if strings.HasPrefix(data, prefix) {
			return slot, strings.TrimPrefix(data, prefix), true
		}
	}
	return "", "", false
}

func adminCallback(action string) string {
	return callbackAdmin + action
}

func approvedPageCallback(page int) string {
	return fmt.Sprintf("%s%s:%d", callbackAdmin, models.AdminApproved, page)
}

// parseAdmin maps admin:<action>[:<page>] to an action and page.
func parseAdmin(data string) (string, int, bool) {
	rest := strings.TrimPrefix(data, callbackAdmin)
	if rest == data || rest == "" {
		return "", 0, false
	}
	action, pageStr, hasPage := strings.Cut(rest, ":")
	switch action {
	case models.AdminOpenPanel, models.AdminStats, models.AdminBack, models.AdminApproved:
	default:
		return "", 0, false
	}
	page := 0
	if hasPage {
		n, err := strconv.Atoi(pageStr)
		if err != nil || n < 0 {
			return "", 0, false
		}
		page = n
	}
	return action, page, true
}

func startupKeyboard() *models.Keyboard {
	return models.Row(models.Button{Text: ButtonAdminPanel, CallbackData: adminCallback(models.AdminOpenPanel)})
}

func panelKeyboard() *models.Keyboard {
	return &models.Keyboard{Rows: [][]models.Button{
		{{Text: ButtonStats, CallbackData: adminCallback(models.AdminStats)}},
		{{Text: ButtonApproved, CallbackData: approvedPageCallback(0)}},
	}}
}

func backKeyboard() *models.Keyboard {
	return models.Row(models.Button{Text: ButtonBack, CallbackData: adminCallback(models.AdminBack)})
}

func pagerKeyboard(p *adminpanel.Page) *models.Keyboard {
	var nav []models.Button
	if p.Page > 0 {
		nav = append(nav, models.Button{Text: ButtonPrev, CallbackData: approvedPageCallback(p.Page - 1)})
	}
	if p.HasNext {
		nav = append(nav, models.Button{Text: ButtonNext, CallbackData: approvedPageCallback(p.Page + 1)})
	}

	kb := &models.Keyboard{}
	if len(nav) > 0 {
		kb.Rows = append(kb.Rows, nav)
	}
	kb.Rows = append(kb.Rows, []models.Button{{Text: ButtonBack, CallbackData: adminCallback(models.AdminBack)}})
	return kb
}
