// Package whatsapp implements the outbound WhatsApp Cloud API port and the
// inbound payload types shared with the webhook adapter.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/flotabot/core/logger"
)

// Config holds credentials and endpoint settings for the Cloud API.
type Config struct {
	APIBase       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
}

// SendResult carries the provider message id of an accepted send.
type SendResult struct {
	MessageID string
	// Raw is the full API response, retained for the message log.
	Raw json.RawMessage
}

// Option is an id/title pair rendered as a list row or reply button.
type Option struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client talks to the Cloud API messages endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client with the tuned retrying HTTP transport.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, http: BuildHTTPClient()}
}

// NewClientWithHTTP is intended for tests that stub the transport.
func NewClientWithHTTP(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = BuildHTTPClient()
	}
	return &Client{cfg: cfg, http: hc}
}

// MaxButtons is the Cloud API cap on reply buttons per message.
const MaxButtons = 3

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResult, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"body": body,
		},
	}
	return c.post(ctx, "send.text", payload)
}

// SendList delivers an interactive list menu.
func (c *Client) SendList(ctx context.Context, to, header, body, button string, rows []Option) (*SendResult, error) {
	wireRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		wireRows = append(wireRows, map[string]string{
			"id":    row.ID,
			"title": row.Title,
		})
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "list",
			"header": map[string]any{
				"type": "text",
				"text": header,
			},
			"body": map[string]any{
				"text": body,
			},
			"action": map[string]any{
				"button": button,
				"sections": []map[string]any{
					{
						"title": "Opciones disponibles",
						"rows":  wireRows,
					},
				},
			},
		},
	}
	return c.post(ctx, "send.list", payload)
}

// SendButtons delivers an interactive reply-button message. The Cloud API
// allows three buttons at most; extras are dropped.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Option) (*SendResult, error) {
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}
	wireButtons := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		wireButtons = append(wireButtons, map[string]any{
			"type": "reply",
			"reply": map[string]string{
				"id":    b.ID,
				"title": b.Title,
			},
		})
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "button",
			"body": map[string]any{
				"text": body,
			},
			"action": map[string]any{
				"buttons": wireButtons,
			},
		},
	}
	return c.post(ctx, "send.buttons", payload)
}

type apiResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *Client) post(ctx context.Context, action string, payload any) (*SendResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.cfg.APIBase, c.cfg.APIVersion, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error(ctx, "wa", "send.fail",
			slog.String("action", action),
			slog.String("err", SanitizeErrorMessage(err)),
			slog.String("error_kind", ClassifyError(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, fmt.Errorf("whatsapp: %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(body)}
		logger.Error(ctx, "wa", "send.fail",
			slog.String("action", action),
			slog.Int("http_code", resp.StatusCode),
			slog.String("err", SanitizeErrorMessage(apiErr)),
			slog.String("error_kind", ClassifyError(apiErr)),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, apiErr
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("whatsapp: decode response: %w", err)
	}
	result := &SendResult{Raw: json.RawMessage(body)}
	if len(parsed.Messages) > 0 {
		result.MessageID = parsed.Messages[0].ID
	}

	logger.Debug(ctx, "wa", "send.success",
		slog.String("action", action),
		slog.String("wa_message_id", result.MessageID),
		slog.Duration("duration", logger.Took(start)),
	)
	return result, nil
}
