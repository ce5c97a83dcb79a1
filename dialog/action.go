package dialog

import (
	"encoding/json"

	"github.com/m3rciful/flotabot/core/whatsapp"
)

// ActionKind discriminates outbound sends.
type ActionKind string

const (
	ActionText    ActionKind = "text"
	ActionList    ActionKind = "list"
	ActionButtons ActionKind = "buttons"
)

// Action is one outbound send the executor performs after the conversation
// row has been persisted. Actions within a Decision are ordered.
type Action struct {
	Kind        ActionKind
	Body        string
	Header      string
	ButtonLabel string
	Options     []whatsapp.Option

	// Fallback, when set on a list or buttons action, is the plain-text
	// body sent instead if the interactive send fails.
	Fallback string

	// SuppressIfRecentTraffic skips the send when ANY outgoing message was
	// logged within the prompt window, regardless of body. Used for the
	// plate re-prompt to absorb rapid repeated taps. Identical-body
	// suppression applies to every action and needs no flag.
	SuppressIfRecentTraffic bool
}

func textAction(body string) Action {
	return Action{Kind: ActionText, Body: body}
}

// LogBody is what gets recorded in the message log: the plain body for text
// sends, a compact JSON description for interactive ones so the log captures
// the exact rows offered.
func (a Action) LogBody() string {
	if a.Kind == ActionText {
		return a.Body
	}
	entry := struct {
		Kind    string            `json:"kind"`
		Header  string            `json:"header,omitempty"`
		Body    string            `json:"body"`
		Options []whatsapp.Option `json:"options"`
	}{Kind: string(a.Kind), Header: a.Header, Body: a.Body, Options: a.Options}
	raw, err := json.Marshal(entry)
	if err != nil {
		return a.Body
	}
	return string(raw)
}
