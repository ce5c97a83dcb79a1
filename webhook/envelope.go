package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/m3rciful/flotabot/core/whatsapp"
)

// Envelope mirrors the WhatsApp Cloud API webhook notification shape. Only
// the message path is walked; statuses and other change fields are ignored.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string                     `json:"messaging_product"`
	Messages         []whatsapp.InboundMessage  `json:"messages"`
	Statuses         []json.RawMessage          `json:"statuses"`
	Contacts         []json.RawMessage          `json:"contacts"`
}

// ParseEnvelope decodes a webhook body.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("webhook: decode envelope: %w", err)
	}
	return &env, nil
}

// FirstMessage extracts the first user message from the notification.
// Delivery receipts and other message-free notifications return nil.
func (e *Envelope) FirstMessage() *whatsapp.InboundMessage {
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) > 0 {
				msg := change.Value.Messages[0]
				return &msg
			}
		}
	}
	return nil
}
