package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultAPIURL is the Telegram Bot API root.
const DefaultAPIURL = "https://api.telegram.org"

// TelegramNotifier pushes forecast summaries to one chat and answers chat
// commands through the Bot API.
type TelegramNotifier struct {
	APIURL   string
	BotToken string
	ChatID   string
	Client   *resty.Client

	Retries int           // extra attempts after a transient failure
	Backoff time.Duration // first retry delay, doubled per attempt
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	client := resty.New()
	client.SetTimeout(35 * time.Second) // covers the 30s long poll
	client.SetHeader("Content-Type", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &TelegramNotifier{
		APIURL:   DefaultAPIURL,
		BotToken: botToken,
		ChatID:   chatID,
		Client:   client,
		Retries:  3,
		Backoff:  time.Second,
	}
}

// APIError is a non-OK answer from the Bot API.
type APIError struct {
	Method      string
	Status      int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram %s: status %d", e.Method, e.Status)
	}
	return fmt.Sprintf("telegram %s: status %d: %s", e.Method, e.Status, e.Description)
}

// transient reports whether a retry could succeed. Rejected tokens or chats
// (4xx other than 429) never will.
func transient(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// call posts payload to a Bot API method and decodes the result field into out.
func (t *TelegramNotifier) call(ctx context.Context, method string, payload, out any) error {
	resp, err := t.Client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(fmt.Sprintf("%s/bot%s/%s", t.APIURL, t.BotToken, method))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	decodeErr := json.Unmarshal(resp.Body(), &envelope)
	if resp.StatusCode() != http.StatusOK || (decodeErr == nil && !envelope.OK) {
		return &APIError{Method: method, Status: resp.StatusCode(), Description: envelope.Description}
	}
	if decodeErr != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, decodeErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// Send delivers an HTML message once.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	return t.call(ctx, "sendMessage", sendMessageRequest{ChatID: t.ChatID, Text: text, ParseMode: "HTML"}, nil)
}

// Notify delivers an HTML message, retrying transient failures up to Retries
// times with doubling delays.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	delay := t.Backoff
	for attempt := 0; ; attempt++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		if attempt >= t.Retries || !transient(err) {
			return fmt.Errorf("notify after %d attempt(s): %w", attempt+1, err)
		}
		log.Printf("[WARN] telegram notify attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
		if !sleepCtx(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
}
