// internal/workers/moderation/moderation-workflow/messages.go
package moderationworkflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"applicant-gate/internal/models"
	"applicant-gate/internal/workers/intake/questionnaire"
)

const (
	TextApproved     = "🎉 Congratulations! Your application has been approved. Tap the button below to join the private chat."
	TextRejected     = "😞 Unfortunately, your application has been rejected."
	ButtonJoinGroup  = "Join the group"
	ButtonApprove    = "✅ Approve"
	ButtonReject     = "❌ Reject"
	TextDecidedBadge = "Decision: %s by %d"
)

// Telegram rejects messages over 4096 UTF-16 units; the card emoji take two each.
const (
	MaxCardLength   = 4000
	MaxCardAnswer   = 800
	truncatedMarker = "…"
)

// ReviewCard renders a submission for the moderator.
func ReviewCard(sub models.Submission) string {
	a := sub.Answers
	var b strings.Builder
	b.WriteString("🔔 New applicant!\n\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", clip(a.Name, MaxCardAnswer))
	fmt.Fprintf(&b, "🆔 ID: %d\n", sub.ApplicantID)
	if sub.DisplayName != "" {
		fmt.Fprintf(&b, "🏷 Telegram: %s\n", clip(sub.DisplayName, MaxCardAnswer))
	}
	fmt.Fprintf(&b, "📅 Subscribed for: %s\n", clip(a.Tenure, MaxCardAnswer))
	fmt.Fprintf(&b, "📚 Favourite genre: %s\n", clip(a.Preference, MaxCardAnswer))
	fmt.Fprintf(&b, "🎯 Why: %s\n", clip(a.Motivation, MaxCardAnswer))
	fmt.Fprintf(&b, "💬 Feedback: %s\n", questionnaire.ChoiceLabel(a.Feedback))
	fmt.Fprintf(&b, "🔐 Confidentiality: %s", questionnaire.ChoiceLabel(a.Confidentiality))
	return clip(b.String(), MaxCardLength)
}

// ReviewKeyboard carries the two single-use decision controls.
func ReviewKeyboard(applicantID uint64) *models.Keyboard {
	return models.Row(
		models.Button{Text: ButtonApprove, CallbackData: fmt.Sprintf("%s%d", CallbackApprove, applicantID)},
		models.Button{Text: ButtonReject, CallbackData: fmt.Sprintf("%s%d", CallbackReject, applicantID)},
	)
}

// JoinKeyboard links to the private group, or is nil when no link is configured.
func JoinKeyboard(groupLink string) *models.Keyboard {
	if groupLink == "" {
		return nil
	}
	return models.Row(models.Button{Text: ButtonJoinGroup, URL: groupLink})
}

// DecidedCard is the review card text once a decision has been taken.
func DecidedCard(card string, rec *models.ModerationRecord) string {
	badge := fmt.Sprintf(TextDecidedBadge, rec.Decision, rec.ModeratorID)
	return clip(card, MaxCardLength-utf8.RuneCountInString(badge)-2) + "\n\n" + badge
}

// clip shortens s to at most n runes, marking the cut.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + truncatedMarker
}

func verdict(decision models.Decision, groupLink string) (string, *models.Keyboard) {
	if decision == models.DecisionApproved {
		return TextApproved, JoinKeyboard(groupLink)
	}
	return TextRejected, nil
}
