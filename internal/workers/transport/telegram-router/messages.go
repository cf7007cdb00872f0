// internal/workers/transport/telegram-router/messages.go
package telegramrouter

import (
	"fmt"
	"strings"

	"applicant-gate/internal/models"
	adminpanel "applicant-gate/internal/workers/admin/admin-panel"
)

const (
	TextWelcome = "Hi! I'm glad you want to join my reader focus group. " +
		"First I need to make sure you are real and your intentions are pure 🥹\n\n" +
		"Please answer a few simple questions 👇"
	TextAlreadyApproved = "You have already been admitted to the private chat. Tap the button below to join."
	TextRejectedNoRetry = "❌ Your application was rejected by the administrator. The questionnaire cannot be taken again."
	TextUnderReview     = "⏳ Your application is being reviewed by the administrator. Please wait for the decision."
	TextCancelled       = "Questionnaire cancelled."
	TextNoSession       = "Send /start to begin the questionnaire."
	TextSubmitted       = "Thank you! I'll look at your answers soon and add you to the private chat."
	TextYourAnswer      = "Your answer: %s"
	TextChooseOption    = "Please choose one of the options below."

	TextNoAccess        = "You don't have access to the admin panel."
	TextAlreadyHandled  = "Already handled."
	TextApplicantGone   = "Applicant not found."
	TextInternalError   = "Something went wrong, please try again later."
	TextInvalidAnswer   = "That answer can't be accepted, please try again."
	TextDecidedApproved = "Applicant approved!"
	TextDecidedRejected = "Applicant rejected!"
	TextNotNotified     = "Decision for applicant %d is saved, but they could not be notified."

	TextStartup        = "✅ Bot is up and ready."
	TextAdminPanel     = "Admin panel. Choose an action:"
	TextStats          = "📊 Applicant statistics:\n\n✅ Approved: %d\n❌ Rejected: %d"
	TextApprovedHeader = "✅ Approved applicants (page %d):"
	TextApprovedEmpty  = "No approved applicants yet."
	TextPurged         = "Applicant %d and all their data have been deleted."
	TextPurgeNotFound  = "Applicant %d not found."
	TextPurgeUsage     = "Usage: /purge <applicant id>"

	ButtonAdminPanel = "⚙️ Admin panel"
	ButtonStats      = "📊 Statistics"
	ButtonApproved   = "✅ Approved list"
	ButtonBack       = "↩️ Back to main menu"
	ButtonPrev       = "◀️ Prev"
	ButtonNext       = "Next ▶️"
)

var slotQuestions = map[models.Slot]string{
	models.SlotName:            "What is your name?",
	models.SlotTenure:          "How long have you been following me?",
	models.SlotPreference:      "What is your favourite literary genre?",
	models.SlotMotivation:      "Why do you want to read my texts?",
	models.SlotFeedback:        "Are you ready to give feedback on what you read?",
	models.SlotConfidentiality: "Will you keep what you read confidential and not share it with anyone?",
}

// Question is the text asking for slot.
func Question(slot models.Slot) string {
	return slotQuestions[slot]
}

func statsText(s *adminpanel.Stats) string {
	return fmt.Sprintf(TextStats, s.Approved, s.Rejected)
}

func approvedText(p *adminpanel.Page) string {
	if len(p.Items) == 0 && p.Page == 0 {
		return TextApprovedEmpty
	}

	var b strings.Builder
	fmt.Fprintf(&b, TextApprovedHeader, p.Page+1)
	for _, a := range p.Items {
		name := a.DisplayName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "\n• %d %s (%s)", a.ID, name, a.ApprovedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}
