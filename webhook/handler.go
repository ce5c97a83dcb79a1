package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/m3rciful/flotabot/core/logger"
	"github.com/m3rciful/flotabot/core/whatsapp"
)

// maxBodyBytes caps webhook payload reads. Notifications are small; anything
// bigger is hostile or broken.
const maxBodyBytes = 1 << 20

// Processor consumes one inbound message. Satisfied by *dialog.Engine.
type Processor interface {
	Process(ctx context.Context, msg *whatsapp.InboundMessage) error
}

// Handler serves the two webhook endpoints: the GET verification handshake
// and the POST notification feed.
type Handler struct {
	verifyToken string
	appSecret   string
	processor   Processor
}

// NewHandler builds the webhook handler. An empty appSecret disables
// signature verification.
func NewHandler(verifyToken, appSecret string, processor Processor) *Handler {
	return &Handler{verifyToken: verifyToken, appSecret: appSecret, processor: processor}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// queryParam reads a hub parameter, accepting both the dotted form Meta
// documents and the underscore form some proxies rewrite it to.
func queryParam(r *http.Request, dotted, underscored string) string {
	q := r.URL.Query()
	if v := q.Get(dotted); v != "" {
		return v
	}
	return q.Get(underscored)
}

// verify answers the subscription handshake: echo hub.challenge when the
// mode is "subscribe" and the verify token matches, 403 otherwise.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	mode := queryParam(r, "hub.mode", "hub_mode")
	token := queryParam(r, "hub.verify_token", "hub_verify_token")
	challenge := queryParam(r, "hub.challenge", "hub_challenge")

	if mode != "subscribe" || token == "" || token != h.verifyToken {
		logger.Hook.Warn("handshake rejected",
			slog.String("event", "hook.verify"),
			slog.String("rid", logger.RIDFrom(r.Context())),
			slog.String("status", "fail"),
		)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	logger.Hook.Info("handshake accepted",
		slog.String("event", "hook.verify"),
		slog.String("rid", logger.RIDFrom(r.Context())),
		slog.String("status", "ok"),
	)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// receive handles one notification. Anything without a user message is
// acknowledged and dropped; processing failures return 500 so the provider
// redelivers.
func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if !VerifySignature(h.appSecret, r.Header.Get("X-Hub-Signature-256"), body) {
		logger.Hook.Warn("signature rejected",
			slog.String("event", "hook.signature"),
			slog.String("rid", logger.RIDFrom(ctx)),
			slog.String("status", "fail"),
		)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	env, err := ParseEnvelope(body)
	if err != nil {
		// Undecodable payloads are acknowledged like message-free ones; a
		// non-2xx would only make the provider redeliver the same junk.
		logger.Hook.Warn("undecodable envelope dropped",
			slog.String("event", "hook.envelope"),
			slog.String("rid", logger.RIDFrom(ctx)),
			slog.String("err", logger.Sanitize(err.Error())),
			slog.String("status", "suppressed"),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := env.FirstMessage()
	if msg == nil {
		// Status updates, read receipts, contact syncs.
		logger.Hook.Debug("notification without message",
			slog.String("event", "hook.receive"),
			slog.String("rid", logger.RIDFrom(ctx)),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	logger.Hook.Info("message received",
		slog.String("event", "hook.receive"),
		slog.String("rid", logger.RIDFrom(ctx)),
		slog.String("phone", logger.MaskPhone(msg.From)),
		slog.String("wa_message_id", msg.ID),
		slog.String("type", msg.Type),
	)

	if err := h.processor.Process(ctx, msg); err != nil {
		logger.Hook.Error("processing failed",
			slog.String("event", "hook.process"),
			slog.String("rid", logger.RIDFrom(ctx)),
			slog.String("phone", logger.MaskPhone(msg.From)),
			slog.String("err", logger.Sanitize(err.Error())),
			slog.String("status", "fail"),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
