// internal/workers/transport/telegram-router/router.go
package telegramrouter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/common/telegram"
	"applicant-gate/internal/models"
	adminpanel "applicant-gate/internal/workers/admin/admin-panel"
	sessioncoordinator "applicant-gate/internal/workers/intake/session-coordinator"
	moderationworkflow "applicant-gate/internal/workers/moderation/moderation-workflow"

	"github.com/google/uuid"
)

const ComponentName = "telegram-router"

// Client is the outbound half of the Bot API the router uses.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *models.Keyboard) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb *models.Keyboard) error
	ClearReplyMarkup(ctx context.Context, chatID, messageID int64) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
}

type Intake interface {
	Handle(ctx context.Context, ev models.Event) (*sessioncoordinator.Result, error)
}

type Moderation interface {
	Decide(ctx context.Context, in moderationworkflow.DecisionInput) (*moderationworkflow.DecisionResult, error)
}

type Admin interface {
	Authorize(actorID int64) error
	Stats(ctx context.Context, actorID int64) (*adminpanel.Stats, error)
	ListApproved(ctx context.Context, actorID int64, page int) (*adminpanel.Page, error)
	Purge(ctx context.Context, actorID int64, applicantID uint64) error
}

// Submitter queues an event for processing.
type Submitter interface {
	Submit(ctx context.Context, ev models.Event) error
}

type Config struct {
	AdminChatID int64
	GroupLink   string
}

// Router maps Telegram updates to events and renders every reply.
type Router struct {
	config     *Config
	client     Client
	intake     Intake
	moderation Moderation
	admin      Admin
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

func New(cfg *Config, client Client, intake Intake, moderation Moderation, admin Admin, log logger.Logger) *Router {
	log = logger.ForComponent(log, ComponentName)
	return &Router{
		config:     cfg,
		client:     client,
		intake:     intake,
		moderation: moderation,
		admin:      admin,
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ToEvent maps an update to an event. Updates the bot does not act on
// yield false.
func (r *Router) ToEvent(u telegram.Update) (models.Event, bool) {
	switch {
	case u.Message != nil:
		return r.messageEvent(u.Message)
	case u.CallbackQuery != nil:
		return r.callbackEvent(u.CallbackQuery)
	}
	return models.Event{}, false
}

func (r *Router) newEvent(kind models.EventKind, from telegram.User, chatID int64) models.Event {
	return models.Event{
		ID:          uuid.New().String(),
		Kind:        kind,
		ApplicantID: uint64(from.ID),
		ChatID:      chatID,
		DisplayName: from.DisplayName(),
		ReceivedAt:  r.now(),
	}
}

func (r *Router) messageEvent(msg *telegram.Message) (models.Event, bool) {
	if msg.From == nil || msg.From.IsBot || msg.From.ID <= 0 {
		return models.Event{}, false
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return models.Event{}, false
	}

	if !strings.HasPrefix(text, "/") {
		ev := r.newEvent(models.EventText, *msg.From, msg.Chat.ID)
		ev.Value = msg.Text
		return ev, true
	}

	command, arg := splitCommand(text)
	switch command {
	case "start":
		return r.newEvent(models.EventBegin, *msg.From, msg.Chat.ID), true
	case "cancel":
		return r.newEvent(models.EventCancel, *msg.From, msg.Chat.ID), true
	case "admin":
		ev := r.newEvent(models.EventAdmin, *msg.From, msg.Chat.ID)
		ev.Value = models.AdminOpenPanel
		ev.ModeratorID = msg.From.ID
		return ev, true
	case "purge":
		ev := r.newEvent(models.EventAdmin, *msg.From, msg.Chat.ID)
		ev.Value = models.AdminPurge
		ev.ModeratorID = msg.From.ID
		// Route by the target so the purge is ordered with its events.
		ev.ApplicantID = 0
		if id, err := strconv.ParseUint(arg, 10, 64); err == nil && id > 0 {
			ev.ApplicantID = id
		}
		return ev, true
	}
	return models.Event{}, false
}

func (r *Router) callbackEvent(cb *telegram.CallbackQuery) (models.Event, bool) {
	if cb.From.ID <= 0 {
		return models.Event{}, false
	}
	chatID := cb.From.ID
	var messageID int64
	var messageText string
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
		messageID = cb.Message.MessageID
		messageText = cb.Message.Text
	}

	if slot, value, ok := parseChoice(cb.Data); ok {
		ev := r.newEvent(models.EventChoice, cb.From, chatID)
		ev.Slot = slot
		ev.Value = value
		ev.CallbackID = cb.ID
		ev.MessageID = messageID
		return ev, true
	}

	for prefix, decision := range map[string]models.Decision{
		moderationworkflow.CallbackApprove: models.DecisionApproved,
		moderationworkflow.CallbackReject:  models.DecisionRejected,
	} {
		if !strings.HasPrefix(cb.Data, prefix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(cb.Data, prefix), 10, 64)
		if err != nil || id == 0 {
			return models.Event{}, false
		}
		ev := r.newEvent(models.EventDecision, cb.From, chatID)
		ev.ApplicantID = id
		ev.DisplayName = ""
		ev.Decision = decision
		ev.ModeratorID = cb.From.ID
		ev.CallbackID = cb.ID
		ev.MessageID = messageID
		ev.Value = messageText
		return ev, true
	}

	if action, page, ok := parseAdmin(cb.Data); ok {
		ev := r.newEvent(models.EventAdmin, cb.From, chatID)
		ev.Value = action
		ev.Page = page
		ev.ModeratorID = cb.From.ID
		ev.CallbackID = cb.ID
		ev.MessageID = messageID
		return ev, true
	}
	return models.Event{}, false
}

// OnUpdate returns the long-polling callback: map, then queue.
func (r *Router) OnUpdate(ctx context.Context, queue Submitter) func(telegram.Update) {
	return func(u telegram.Update) {
		ev, ok := r.ToEvent(u)
		if !ok {
			// Stop the spinner on controls we do not recognise.
			if u.CallbackQuery != nil {
				_ = r.client.AnswerCallbackQuery(ctx, u.CallbackQuery.ID, "", false)
			}
			return
		}
		if err := queue.Submit(ctx, ev); err != nil {
			r.logger.Warn("event not queued", map[string]interface{}{
				"eventId":     ev.ID,
				"kind":        string(ev.Kind),
				"applicantId": ev.ApplicantID,
				"error":       err,
			})
		}
	}
}

// HandleEvent runs one event to completion, replies included. It is the
// dispatcher's handler.
func (r *Router) HandleEvent(ctx context.Context, ev models.Event) error {
	var err error
	switch ev.Kind {
	case models.EventBegin, models.EventText, models.EventChoice, models.EventCancel:
		err = r.handleIntake(ctx, ev)
	case models.EventDecision:
		err = r.handleDecision(ctx, ev)
	case models.EventAdmin:
		err = r.handleAdmin(ctx, ev)
	default:
		err = fmt.Errorf("%w: unknown event kind %q", apperrors.ErrValidation, ev.Kind)
	}

	if err != nil {
		r.reportError(ctx, ev, err)
	}
	return err
}

// reportError logs through the error handler and tells the actor when the
// disposition asks for it.
func (r *Router) reportError(ctx context.Context, ev models.Event, err error) {
	d := r.errors.HandleEventError(string(ev.Kind), ev.ApplicantID, err)

	text := TextInternalError
	switch d.Code {
	case apperrors.ErrCodeForbidden:
		text = TextNoAccess
	case apperrors.ErrCodeConflict:
		text = TextAlreadyHandled
		if ev.Kind != models.EventDecision {
			text = TextUnderReview
		}
	case apperrors.ErrCodeValidationFailed:
		text = TextInvalidAnswer
	case apperrors.ErrCodeNotFound:
		text = TextApplicantGone
	}

	if ev.CallbackID != "" {
		r.answer(ctx, ev.CallbackID, text, d.NotifyActor)
		return
	}
	if d.NotifyActor {
		r.send(ctx, ev.ChatID, text, nil)
	}
}

// SendStartupNotice tells the moderator the bot is running.
func (r *Router) SendStartupNotice(ctx context.Context) error {
	if r.config.AdminChatID == 0 {
		return nil
	}
	return r.client.SendMessage(ctx, r.config.AdminChatID, TextStartup, startupKeyboard())
}

func (r *Router) send(ctx context.Context, chatID int64, text string, kb *models.Keyboard) {
	if err := r.client.SendMessage(ctx, chatID, text, kb); err != nil {
		r.logger.Warn("reply not delivered", map[string]interface{}{
			"chatId": chatID,
			"error":  err,
		})
	}
}

// edit replaces a message in place, falling back to a new message when
// there is nothing to edit or the edit fails.
func (r *Router) edit(ctx context.Context, chatID, messageID int64, text string, kb *models.Keyboard) {
	if messageID == 0 {
		r.send(ctx, chatID, text, kb)
		return
	}
	if err := r.client.EditMessageText(ctx, chatID, messageID, text, kb); err != nil {
		r.logger.Debug("edit failed, sending instead", map[string]interface{}{
			"chatId": chatID,
			"error":  err,
		})
		r.send(ctx, chatID, text, kb)
	}
}

func (r *Router) answer(ctx context.Context, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	if err := r.client.AnswerCallbackQuery(ctx, callbackID, text, alert); err != nil {
		r.logger.Debug("callback not answered", map[string]interface{}{
			"callbackId": callbackID,
			"error":      err,
		})
	}
}

// splitCommand turns "/start@bot payload" into ("start", "payload").
func splitCommand(text string) (string, string) {
	head, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(arg)
}
