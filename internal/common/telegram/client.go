// Package telegram is a small Bot API client: long polling in, rate-limited
// messages out.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"applicant-gate/internal/common/config"
	apperrors "applicant-gate/internal/common/errors"
	apphttp "applicant-gate/internal/common/http"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/models"

	"golang.org/x/time/rate"
)

// APIError is a response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// IsMessageNotModified matches the harmless error returned when an edit
// would leave a message unchanged.
func IsMessageNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}

type Client struct {
	http        *apphttp.Client
	baseURL     string
	limiter     *rate.Limiter
	pollTimeout int
	logger      logger.Logger
}

func NewClient(cfg config.TelegramConfig, log logger.Logger) *Client {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	// The HTTP timeout has to outlive the long-poll window.
	timeout := config.GetDuration(cfg.RequestTimeout) + config.GetSeconds(cfg.PollTimeout)

	return &Client{
		http:        apphttp.NewClient(timeout),
		baseURL:     fmt.Sprintf("%s/bot%s", strings.TrimRight(cfg.BaseURL, "/"), cfg.Token),
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		pollTimeout: cfg.PollTimeout,
		logger:      logger.ForComponent(log, "telegram"),
	}
}

func (c *Client) call(ctx context.Context, method string, payload, out interface{}) error {
	status, data, err := c.http.PostJSON(ctx, c.baseURL+"/"+method, payload)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return fmt.Errorf("telegram %s: unmarshal (status %d): %w", method, status, err)
	}

	if !apiResp.OK {
		apiErr := &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}

	if out != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// send is call behind the outbound rate limiter.
func (c *Client) send(ctx context.Context, method string, payload, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram %s: rate limit: %w", method, err)
	}
	return c.call(ctx, method, payload, out)
}

// SendMessage delivers text with optional inline controls. Failures come
// back as DELIVERY_FAILED errors.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb *models.Keyboard) error {
	req := SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: toMarkup(kb),
	}

	var msg MessageResult
	if err := c.send(ctx, "sendMessage", req, &msg); err != nil {
		return apperrors.NewDeliveryError(chatID, err)
	}
	return nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb *models.Keyboard) error {
	req := EditMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: toMarkup(kb),
	}
	if err := c.send(ctx, "editMessageText", req, nil); err != nil && !IsMessageNotModified(err) {
		return apperrors.NewDeliveryError(chatID, err)
	}
	return nil
}

// ClearReplyMarkup strips inline controls from a message.
func (c *Client) ClearReplyMarkup(ctx context.Context, chatID, messageID int64) error {
	req := EditMessageReplyMarkupRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{}},
	}
	if err := c.send(ctx, "editMessageReplyMarkup", req, nil); err != nil && !IsMessageNotModified(err) {
		return apperrors.NewDeliveryError(chatID, err)
	}
	return nil
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	req := AnswerCallbackQueryRequest{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       showAlert,
	}
	return c.send(ctx, "answerCallbackQuery", req, nil)
}

// GetUpdates long-polls for updates after offset. It bypasses the limiter.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	req := GetUpdatesRequest{
		Offset:         offset,
		Timeout:        c.pollTimeout,
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// Poll feeds every update to handle until ctx is cancelled. Transient
// errors back off and retry; they never end the loop.
func (c *Client) Poll(ctx context.Context, handle func(Update)) error {
	var offset int64
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := c.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			c.logger.Warn("getUpdates failed, retrying", map[string]interface{}{
				"error":   err,
				"backoff": wait.String(),
			})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			handle(u)
		}
	}
}

func toMarkup(kb *models.Keyboard) *InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}
	markup := &InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(kb.Rows))}
	for _, row := range kb.Rows {
		buttons := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, InlineKeyboardButton{Text: b.Text, CallbackData: b.CallbackData, URL: b.URL})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}
