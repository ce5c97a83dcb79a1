// Package sweep closes conversations that idled past the session timeout.
// It only flips the active flag and says goodbye; the dialogue reset itself
// happens inline in the engine when the user writes again.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/m3rciful/flotabot/core/logger"
	"github.com/m3rciful/flotabot/core/whatsapp"
	"github.com/m3rciful/flotabot/store"
)

// Notifier sends the closing notice. Satisfied by *whatsapp.Client.
type Notifier interface {
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResult, error)
}

// ConversationLister finds and closes idle conversations. Satisfied by
// *store.Conversations.
type ConversationLister interface {
	ListIdleActive(ctx context.Context, cutoff time.Time) ([]store.Conversation, error)
	Deactivate(ctx context.Context, id int64) error
}

const closingNotice = "Cerramos esta conversación por inactividad. " +
	"Escríbenos cuando necesites consultar de nuevo. 👋"

// Sweeper periodically deactivates conversations with no traffic for longer
// than the idle timeout.
type Sweeper struct {
	convs       ConversationLister
	notifier    Notifier
	idleTimeout time.Duration
	schedule    string
	cron        *gronx.Gronx

	now func() time.Time
}

// New builds a sweeper. The schedule must already be validated by config
// normalization.
func New(convs ConversationLister, notifier Notifier, idleTimeout time.Duration, schedule string) *Sweeper {
	return &Sweeper{
		convs:       convs,
		notifier:    notifier,
		idleTimeout: idleTimeout,
		schedule:    schedule,
		cron:        gronx.New(),
		now:         time.Now,
	}
}

// Run blocks until ctx is cancelled, firing a sweep whenever the cron
// schedule is due. The check granularity is one minute, matching cron's.
func (s *Sweeper) Run(ctx context.Context) {
	logger.Sweep.Info("sweeper started",
		slog.String("event", "sweep.start"),
		slog.String("schedule", s.schedule),
		slog.Duration("idle_timeout", s.idleTimeout),
	)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Sweep.Info("sweeper stopped", slog.String("event", "sweep.stop"))
			return
		case <-ticker.C:
			due, err := s.cron.IsDue(s.schedule, s.now())
			if err != nil || !due {
				continue
			}
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass: every active conversation whose last
// interaction predates the idle cutoff gets a goodbye and is deactivated.
// Notification failures do not block deactivation.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	start := s.now()
	cutoff := start.Add(-s.idleTimeout)

	idle, err := s.convs.ListIdleActive(ctx, cutoff)
	if err != nil {
		logger.Sweep.Error("idle listing failed",
			slog.String("event", "sweep.list"),
			slog.String("err", logger.Sanitize(err.Error())),
			slog.String("status", "fail"),
		)
		return
	}
	if len(idle) == 0 {
		logger.Sweep.Debug("nothing to sweep", slog.String("event", "sweep.pass"))
		return
	}

	closed := 0
	for i := range idle {
		conv := &idle[i]
		if s.notifier != nil {
			if _, err := s.notifier.SendText(ctx, conv.PhoneNumber, closingNotice); err != nil {
				logger.Sweep.Warn("closing notice failed",
					slog.String("event", "sweep.notify"),
					slog.Int64("conversation_id", conv.ID),
					slog.String("phone", logger.MaskPhone(conv.PhoneNumber)),
					slog.String("err", logger.Sanitize(err.Error())),
				)
			}
		}
		if err := s.convs.Deactivate(ctx, conv.ID); err != nil {
			logger.Sweep.Error("deactivate failed",
				slog.String("event", "sweep.deactivate"),
				slog.Int64("conversation_id", conv.ID),
				slog.String("err", logger.Sanitize(err.Error())),
				slog.String("status", "fail"),
			)
			continue
		}
		closed++
	}

	logger.Sweep.Info("sweep pass done",
		slog.String("event", "sweep.pass"),
		slog.Int("candidates", len(idle)),
		slog.Int("closed", closed),
		slog.Duration("duration", logger.RoundMS(logger.Took(start))),
		slog.String("status", "ok"),
	)
}
