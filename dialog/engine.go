package dialog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/m3rciful/flotabot/core/logger"
	"github.com/m3rciful/flotabot/core/whatsapp"
	"github.com/m3rciful/flotabot/store"
)

// Options tunes the engine's timing policy. Zero values fall back to the
// defaults below.
type Options struct {
	IdleTimeout  time.Duration
	DedupWindow  time.Duration
	PromptWindow time.Duration
	SendPacing   time.Duration
}

const (
	defaultIdleTimeout  = 30 * time.Minute
	defaultDedupWindow  = 10 * time.Second
	defaultPromptWindow = 10 * time.Second
	defaultSendPacing   = 600 * time.Millisecond
)

// Engine drives the conversation state machine. One instance serves all
// phones; per-phone serialization happens inside Process.
type Engine struct {
	gateway Gateway
	trucks  TruckFinder
	convs   ConversationStore
	msgs    MessageLog

	idleTimeout  time.Duration
	dedupWindow  time.Duration
	promptWindow time.Duration
	pacing       time.Duration

	locks   *phoneLocks
	replays *replayGuard

	// Test seams.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewEngine wires the engine over its collaborators.
func NewEngine(gateway Gateway, trucks TruckFinder, convs ConversationStore, msgs MessageLog, opts Options) *Engine {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = defaultDedupWindow
	}
	if opts.PromptWindow <= 0 {
		opts.PromptWindow = defaultPromptWindow
	}
	if opts.SendPacing < 0 {
		opts.SendPacing = defaultSendPacing
	}
	return &Engine{
		gateway:      gateway,
		trucks:       trucks,
		convs:        convs,
		msgs:         msgs,
		idleTimeout:  opts.IdleTimeout,
		dedupWindow:  opts.DedupWindow,
		promptWindow: opts.PromptWindow,
		pacing:       opts.SendPacing,
		locks:        newPhoneLocks(),
		replays:      newReplayGuard(5 * time.Minute),
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

// Process handles one inbound message end to end: normalize, guard against
// replays, run the transition, persist the conversation, then execute the
// outbound actions. The conversation row is saved before any send so state
// survives a failed delivery.
func (e *Engine) Process(ctx context.Context, msg *whatsapp.InboundMessage) error {
	ev, ok := Normalize(msg)
	if !ok {
		logger.Dialog.Debug("inbound ignored",
			slog.String("event", "dialog.skip"),
			slog.String("rid", logger.RIDFrom(ctx)),
		)
		return nil
	}

	ctx = logger.WithEventMeta(ctx, msg.From, ev.MessageID)
	start := e.now()

	if e.replays.Seen(ev.MessageID, start) {
		logger.Dialog.Info("inbound replayed",
			slog.String("event", "dialog.replay"),
			slog.String("rid", logger.RIDFrom(ctx)),
			slog.String("phone", logger.MaskPhone(msg.From)),
			slog.String("wa_message_id", ev.MessageID),
			slog.String("status", "suppressed"),
		)
		return nil
	}

	release := e.locks.Acquire(msg.From)
	defer release()

	conv, err := e.convs.GetOrCreate(ctx, msg.From, start)
	if err != nil {
		return fmt.Errorf("dialog: load conversation: %w", err)
	}
	ctx = logger.WithConversationID(ctx, conv.ID)

	if err := e.logIncoming(ctx, conv, ev); err != nil {
		return err
	}

	// List titles are truncated for display, so the row id is the only
	// reliable record of what was picked. Capture it before the transition
	// runs.
	if ev.ControlID != "" {
		conv.PendingSelection = toNullString(ev.ControlID)
	}

	prevStep := conv.CurrentStep
	actions, err := e.decide(ctx, conv, ev, start)
	if err != nil {
		return err
	}

	conv.IsActive = true
	conv.LastInteraction = toNullTime(start)
	if err := e.convs.Save(ctx, conv); err != nil {
		return fmt.Errorf("dialog: save conversation: %w", err)
	}

	if err := e.execute(ctx, conv, actions); err != nil {
		return err
	}

	logger.Dialog.Info("inbound handled",
		slog.String("event", "dialog.handle"),
		slog.String("rid", logger.RIDFrom(ctx)),
		slog.String("phone", logger.MaskPhone(msg.From)),
		slog.Int64("conversation_id", conv.ID),
		slog.String("step", prevStep),
		slog.String("next_step", conv.CurrentStep),
		slog.Int("actions", len(actions)),
		slog.Duration("duration", logger.RoundMS(logger.Took(start))),
		slog.String("status", "ok"),
	)
	return nil
}

func (e *Engine) logIncoming(ctx context.Context, conv *store.Conversation, ev Event) error {
	entry := &store.Message{
		ConversationID: conv.ID,
		Direction:      store.DirectionIncoming,
		Body:           ev.CanonicalText,
		WAMessageID:    toNullString(ev.MessageID),
	}
	if ev.ControlID != "" {
		raw, err := json.Marshal(map[string]string{"control_id": ev.ControlID})
		if err == nil {
			entry.Metadata = types.NullJSONText{JSONText: raw, Valid: true}
		}
	}
	if err := e.msgs.Append(ctx, entry); err != nil {
		return fmt.Errorf("dialog: log incoming: %w", err)
	}
	return nil
}

// execute performs the ordered sends with pacing, dedup suppression, and
// menu degradation applied. A failed text send propagates; a failed
// interactive send retries as its plain-text fallback first.
func (e *Engine) execute(ctx context.Context, conv *store.Conversation, actions []Action) error {
	sent := 0
	for _, action := range actions {
		suppressed, err := e.shouldSuppress(ctx, conv, action)
		if err != nil {
			return err
		}
		if suppressed {
			logger.Dialog.Info("outbound suppressed",
				slog.String("event", "dialog.suppress"),
				slog.String("rid", logger.RIDFrom(ctx)),
				slog.Int64("conversation_id", conv.ID),
				slog.String("status", "suppressed"),
				slog.Duration("window", e.dedupWindow),
			)
			continue
		}

		if sent > 0 && e.pacing > 0 {
			e.sleep(e.pacing)
		}

		result, body, err := e.send(ctx, conv, action)
		if err != nil {
			return err
		}
		sent++

		out := &store.Message{
			ConversationID: conv.ID,
			Direction:      store.DirectionOutgoing,
			Body:           body,
		}
		if result != nil {
			out.WAMessageID = toNullString(result.MessageID)
		}
		if err := e.msgs.Append(ctx, out); err != nil {
			// The send already happened; failing now would trigger a
			// provider retry and a duplicate delivery.
			logger.Dialog.Error("outbound log failed",
				slog.String("event", "dialog.log_outgoing"),
				slog.String("rid", logger.RIDFrom(ctx)),
				slog.Int64("conversation_id", conv.ID),
				slog.String("err", logger.Sanitize(err.Error())),
				slog.String("status", "fail"),
			)
		}
	}
	return nil
}

func (e *Engine) shouldSuppress(ctx context.Context, conv *store.Conversation, action Action) (bool, error) {
	if action.SuppressIfRecentTraffic {
		recent, err := e.msgs.HasRecentOutgoing(ctx, conv.ID, e.promptWindow)
		if err != nil {
			return false, fmt.Errorf("dialog: dedup lookup: %w", err)
		}
		if recent {
			return true, nil
		}
	}
	dup, err := e.msgs.HasRecentOutgoingBody(ctx, conv.ID, action.LogBody(), e.dedupWindow)
	if err != nil {
		return false, fmt.Errorf("dialog: dedup lookup: %w", err)
	}
	return dup, nil
}

// send dispatches one action and returns the provider result plus the body
// recorded in the message log. Interactive sends degrade to their plain
// fallback when the provider rejects them.
func (e *Engine) send(ctx context.Context, conv *store.Conversation, action Action) (*whatsapp.SendResult, string, error) {
	to := conv.PhoneNumber

	switch action.Kind {
	case ActionText:
		result, err := e.gateway.SendText(ctx, to, action.Body)
		if err != nil {
			return nil, "", fmt.Errorf("dialog: send text: %w", err)
		}
		return result, action.Body, nil

	case ActionList:
		result, err := e.gateway.SendList(ctx, to, action.Header, action.Body, action.ButtonLabel, action.Options)
		if err == nil {
			return result, action.LogBody(), nil
		}
		return e.degrade(ctx, conv, action, err)

	case ActionButtons:
		result, err := e.gateway.SendButtons(ctx, to, action.Body, action.Options)
		if err == nil {
			return result, action.LogBody(), nil
		}
		return e.degrade(ctx, conv, action, err)
	}

	return nil, "", fmt.Errorf("dialog: unknown action kind %q", action.Kind)
}

// degrade retries a failed interactive send as plain text. Only when the
// fallback also fails does the error propagate.
func (e *Engine) degrade(ctx context.Context, conv *store.Conversation, action Action, cause error) (*whatsapp.SendResult, string, error) {
	logger.Dialog.Warn("interactive send degraded",
		slog.String("event", "dialog.degrade"),
		slog.String("rid", logger.RIDFrom(ctx)),
		slog.Int64("conversation_id", conv.ID),
		slog.String("action", string(action.Kind)),
		slog.String("err", logger.Sanitize(cause.Error())),
	)
	body := action.Fallback
	if body == "" {
		body = action.Body
	}
	result, err := e.gateway.SendText(ctx, conv.PhoneNumber, body)
	if err != nil {
		return nil, "", fmt.Errorf("dialog: send fallback: %w", err)
	}
	return result, body, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}
