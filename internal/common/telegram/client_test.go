package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"applicant-gate/internal/common/config"
	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type recordedCall struct {
	Method string
	Body   map[string]interface{}
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(method string, body map[string]interface{}) string
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		assert.True(t, strings.HasPrefix(r.URL.Path, "/bottest-token/"), r.URL.Path)

		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: method, Body: body})
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, f.respond(method, body))
	}
}

func (f *fakeAPI) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	return NewClient(config.TelegramConfig{
		Token:          "test-token",
		BaseURL:        srv.URL + "/",
		PollTimeout:    0,
		RequestTimeout: 2000,
		RatePerSecond:  1000,
		Burst:          10,
	}, logger.NewTestLogger(t))
}

func okResult(result string) string {
	return `{"ok":true,"result":` + result + `}`
}

// ==========================
// Outbound
// ==========================

func TestClient_SendMessage_WithKeyboard(t *testing.T) {
	api := &fakeAPI{respond: func(string, map[string]interface{}) string {
		return okResult(`{"message_id":5}`)
	}}
	c := newTestClient(t, api)

	kb := &models.Keyboard{Rows: [][]models.Button{
		{{Text: "Approve", CallbackData: "approve:42"}, {Text: "Reject", CallbackData: "reject:42"}},
		{{Text: "Join", URL: "https://t.me/+group"}},
	}}
	require.NoError(t, c.SendMessage(context.Background(), 7, "review", kb))

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "sendMessage", calls[0].Method)
	assert.Equal(t, float64(7), calls[0].Body["chat_id"])

	markup := calls[0].Body["reply_markup"].(map[string]interface{})
	rows := markup["inline_keyboard"].([]interface{})
	require.Len(t, rows, 2)
	first := rows[0].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "approve:42", first["callback_data"])
	link := rows[1].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "https://t.me/+group", link["url"])
	assert.NotContains(t, link, "callback_data")
}

func TestClient_SendMessage_APIErrorIsDeliveryError(t *testing.T) {
	api := &fakeAPI{respond: func(string, map[string]interface{}) string {
		return `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	}}
	c := newTestClient(t, api)

	err := c.SendMessage(context.Background(), 42, "hello", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsDelivery(err))
	assert.Contains(t, err.Error(), "bot was blocked")

	_, hasMarkup := api.recorded()[0].Body["reply_markup"]
	assert.False(t, hasMarkup)
}

func TestClient_EditMessageText_NotModifiedIsIgnored(t *testing.T) {
	api := &fakeAPI{respond: func(string, map[string]interface{}) string {
		return `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`
	}}
	c := newTestClient(t, api)

	assert.NoError(t, c.EditMessageText(context.Background(), 1, 2, "same", nil))
	assert.NoError(t, c.ClearReplyMarkup(context.Background(), 1, 2))
}

func TestClient_ClearReplyMarkup_SendsEmptyKeyboard(t *testing.T) {
	api := &fakeAPI{respond: func(string, map[string]interface{}) string { return okResult(`true`) }}
	c := newTestClient(t, api)

	require.NoError(t, c.ClearReplyMarkup(context.Background(), 1, 99))

	call := api.recorded()[0]
	assert.Equal(t, "editMessageReplyMarkup", call.Method)
	assert.Equal(t, float64(99), call.Body["message_id"])
	markup := call.Body["reply_markup"].(map[string]interface{})
	assert.Empty(t, markup["inline_keyboard"])
}

func TestClient_AnswerCallbackQuery(t *testing.T) {
	api := &fakeAPI{respond: func(string, map[string]interface{}) string { return okResult(`true`) }}
	c := newTestClient(t, api)

	require.NoError(t, c.AnswerCallbackQuery(context.Background(), "cb-1", "Already handled", true))

	call := api.recorded()[0]
	assert.Equal(t, "answerCallbackQuery", call.Method)
	assert.Equal(t, "cb-1", call.Body["callback_query_id"])
	assert.Equal(t, true, call.Body["show_alert"])
}

// ==========================
// Inbound
// ==========================

func TestClient_GetUpdates_RetryAfter(t *testing.T) {
	api := &fakeAPI{respond: func(string, map[string]interface{}) string {
		return `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`
	}}
	c := newTestClient(t, api)

	_, err := c.GetUpdates(context.Background(), 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
}

func TestClient_Poll_AdvancesOffset(t *testing.T) {
	var mu sync.Mutex
	served := 0
	api := &fakeAPI{respond: func(method string, body map[string]interface{}) string {
		mu.Lock()
		defer mu.Unlock()
		served++
		if served == 1 {
			return okResult(`[
				{"update_id":10,"message":{"message_id":1,"from":{"id":42,"first_name":"Al"},"chat":{"id":42},"text":"/start"}},
				{"update_id":11,"callback_query":{"id":"cb","from":{"id":7,"first_name":"Mod"},"data":"approve:42"}}
			]`)
		}
		return okResult(`[]`)
	}}
	c := newTestClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	var got []Update
	done := make(chan error, 1)
	go func() {
		done <- c.Poll(ctx, func(u Update) {
			got = append(got, u)
			if len(got) == 2 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("poll did not stop")
	}

	require.Len(t, got, 2)
	assert.Equal(t, "/start", got[0].Message.Text)
	assert.Equal(t, "approve:42", got[1].CallbackQuery.Data)

	calls := api.recorded()
	assert.Equal(t, "getUpdates", calls[0].Method)
	if len(calls) > 1 {
		assert.Equal(t, float64(12), calls[1].Body["offset"])
	}
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "alice", User{Username: "alice", FirstName: "Alice"}.DisplayName())
	assert.Equal(t, "Alice Smith", User{FirstName: "Alice", LastName: "Smith"}.DisplayName())
	assert.Equal(t, "Alice", User{FirstName: "Alice"}.DisplayName())
}
