package dialog

import (
	"strings"

	"github.com/m3rciful/flotabot/core/whatsapp"
)

// Normalize maps the three inbound payload shapes onto one Event. It returns
// ok=false when the message carries nothing the engine can act on (unknown
// type, empty interactive node), which callers treat as a no-op.
//
// Normalization happens exactly once, before the state machine runs, so step
// handlers never branch on wire-format shape.
func Normalize(msg *whatsapp.InboundMessage) (Event, bool) {
	if msg == nil {
		return Event{}, false
	}

	ev := Event{MessageID: msg.ID}

	switch msg.Type {
	case whatsapp.TypeText:
		if msg.Text == nil {
			return Event{}, false
		}
		ev.Shape = ShapeText
		ev.CanonicalText = strings.TrimSpace(msg.Text.Body)
		return ev, true

	case whatsapp.TypeInteractive:
		if msg.Interactive == nil {
			return Event{}, false
		}
		switch msg.Interactive.Type {
		case whatsapp.InteractiveButtonReply:
			reply := msg.Interactive.ButtonReply
			if reply == nil {
				return Event{}, false
			}
			ev.Shape = ShapeButton
			ev.ControlID = reply.ID
			ev.CanonicalText = resolveReserved(reply.ID, reply.Title)
			return ev, true

		case whatsapp.InteractiveListReply:
			reply := msg.Interactive.ListReply
			if reply == nil {
				return Event{}, false
			}
			ev.Shape = ShapeList
			ev.ControlID = reply.ID
			ev.CanonicalText = resolveReserved(reply.ID, reply.Title)
			return ev, true
		}
	}

	return Event{}, false
}

// resolveReserved forces reserved control ids onto their canonical phrases.
// A button title is a UI label; routing must key off the stable id.
func resolveReserved(id, title string) string {
	switch id {
	case ControlExit:
		return ExitPhrase
	case ControlBack:
		return BackPhrase
	}
	return strings.TrimSpace(title)
}
