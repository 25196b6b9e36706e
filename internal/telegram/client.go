package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/ratelimit"
)

const (
	maxRetries       = 3
	initialBackoff   = time.Second
	maxResponseBytes = 10 << 20 // 10 MiB
)

// Client is a thin HTTP wrapper around the Telegram Bot API. Outbound calls
// are throttled to the configured rate.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter ratelimit.Limiter
}

// NewClient creates a new Telegram Bot API client. A non-positive rps
// disables throttling.
func NewClient(token, baseURL string, rps int) *Client {
	limiter := ratelimit.NewUnlimited()
	if rps > 0 {
		limiter = ratelimit.New(rps)
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: limiter,
	}
}

// do sends a JSON POST request to the given Bot API method and decodes the response.
func do[T any](ctx context.Context, c *Client, method string, payload any) (*T, error) {
	var data []byte
	contentType := ""
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
		}
		contentType = "application/json"
	}
	return call[T](ctx, c, method, contentType, data)
}

// call posts a pre-encoded body. It handles 429 rate limiting with
// Retry-After (max 3 attempts, exponential backoff).
func call[T any](ctx context.Context, c *Client, method, contentType string, data []byte) (*T, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	backoff := initialBackoff

	for attempt := range maxRetries {
		c.limiter.Take()

		var body io.Reader
		if data != nil {
			body = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries-1 {
			var apiResp APIResponse[json.RawMessage]
			if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
				backoff = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
			}

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			continue
		}

		var apiResp APIResponse[T]
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
		}

		if !apiResp.OK {
			apiErr := &APIError{
				Code:        apiResp.ErrorCode,
				Description: apiResp.Description,
			}
			if apiResp.Parameters != nil {
				apiErr.RetryAfter = apiResp.Parameters.RetryAfter
			}
			return nil, apiErr
		}

		return &apiResp.Result, nil
	}

	return nil, fmt.Errorf("telegram: %s: max retries exceeded", method)
}

// GetUpdatesRequest is the request body for the getUpdates method.
type GetUpdatesRequest struct {
	Offset         int      `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhookRequest is the request body for the setWebhook method.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
	MaxConnections int      `json:"max_connections,omitempty"`
}

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool                  `json:"disable_notification,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageTextRequest is the request body for the editMessageText method.
type EditMessageTextRequest struct {
	ChatID                int64                 `json:"chat_id"`
	MessageID             int                   `json:"message_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// AnswerCallbackQueryRequest is the request body for the answerCallbackQuery method.
type AnswerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

// SendMediaRequest describes a media message re-sent by file id. Kind is
// one of the media field names of Message ("photo", "video", "video_note",
// "document", "audio", "voice", "animation").
type SendMediaRequest struct {
	ChatID    int64
	Kind      string
	FileID    string
	Caption   string
	ParseMode string
}

// SendInvoiceRequest is the request body for the sendInvoice method. Telegram
// Stars invoices use currency "XTR" and an empty provider token.
type SendInvoiceRequest struct {
	ChatID        int64          `json:"chat_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Payload       string         `json:"payload"`
	ProviderToken string         `json:"provider_token"`
	Currency      string         `json:"currency"`
	Prices        []LabeledPrice `json:"prices"`
}

// AnswerPreCheckoutQueryRequest is the request body for the answerPreCheckoutQuery method.
type AnswerPreCheckoutQueryRequest struct {
	PreCheckoutQueryID string `json:"pre_checkout_query_id"`
	OK                 bool   `json:"ok"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

type getBusinessConnectionRequest struct {
	BusinessConnectionID string `json:"business_connection_id"`
}

// mediaMethods maps a media kind to the Bot API method that sends it.
var mediaMethods = map[string]string{
	"photo":      "sendPhoto",
	"video":      "sendVideo",
	"video_note": "sendVideoNote",
	"document":   "sendDocument",
	"audio":      "sendAudio",
	"voice":      "sendVoice",
	"animation":  "sendAnimation",
}

// GetMe returns the bot's user information.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return do[User](ctx, c, "getMe", nil)
}

// GetUpdates fetches incoming updates using long polling.
func (c *Client) GetUpdates(ctx context.Context, req GetUpdatesRequest) ([]Update, error) {
	result, err := do[[]Update](ctx, c, "getUpdates", req)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// SetWebhook configures the webhook URL for receiving updates.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	_, err := do[bool](ctx, c, "setWebhook", req)
	return err
}

// DeleteWebhook removes the current webhook integration.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := do[bool](ctx, c, "deleteWebhook", nil)
	return err
}

// GetBusinessConnection returns the business connection with the given id.
func (c *Client) GetBusinessConnection(ctx context.Context, id string) (*BusinessConnection, error) {
	return do[BusinessConnection](ctx, c, "getBusinessConnection", getBusinessConnectionRequest{BusinessConnectionID: id})
}

// SendMessage sends a text message to the specified chat.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return do[Message](ctx, c, "sendMessage", req)
}

// EditMessageText edits the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, req EditMessageTextRequest) (*Message, error) {
	return do[Message](ctx, c, "editMessageText", req)
}

// AnswerCallbackQuery acknowledges a callback query.
func (c *Client) AnswerCallbackQuery(ctx context.Context, req AnswerCallbackQueryRequest) error {
	_, err := do[bool](ctx, c, "answerCallbackQuery", req)
	return err
}

// SendMedia re-sends a stored file by its file id using the method matching
// req.Kind. Video notes cannot carry a caption; it is dropped for them.
func (c *Client) SendMedia(ctx context.Context, req SendMediaRequest) (*Message, error) {
	method, ok := mediaMethods[req.Kind]
	if !ok {
		return nil, fmt.Errorf("telegram: unsupported media kind %q", req.Kind)
	}
	payload := map[string]any{
		"chat_id": req.ChatID,
		req.Kind:  req.FileID,
	}
	if req.Caption != "" && req.Kind != "video_note" {
		payload["caption"] = req.Caption
		if req.ParseMode != "" {
			payload["parse_mode"] = req.ParseMode
		}
	}
	return do[Message](ctx, c, method, payload)
}

// SendDocumentFile uploads the content of r as a new document.
func (c *Client) SendDocumentFile(ctx context.Context, chatID int64, filename string, r io.Reader, caption string) (*Message, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", fmt.Sprint(chatID)); err != nil {
		return nil, fmt.Errorf("telegram: encode sendDocument: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return nil, fmt.Errorf("telegram: encode sendDocument: %w", err)
		}
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return nil, fmt.Errorf("telegram: encode sendDocument: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("telegram: encode sendDocument: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("telegram: encode sendDocument: %w", err)
	}
	return call[Message](ctx, c, "sendDocument", mw.FormDataContentType(), buf.Bytes())
}

// SendInvoice sends an invoice to the specified chat.
func (c *Client) SendInvoice(ctx context.Context, req SendInvoiceRequest) (*Message, error) {
	return do[Message](ctx, c, "sendInvoice", req)
}

// AnswerPreCheckoutQuery confirms or rejects a pre-checkout query.
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, req AnswerPreCheckoutQueryRequest) error {
	_, err := do[bool](ctx, c, "answerPreCheckoutQuery", req)
	return err
}
