// Package webhook is the inbound HTTP adapter: it terminates the WhatsApp
// Cloud API webhook (handshake, signature check, envelope parsing) and hands
// user messages to the dialogue engine.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/m3rciful/flotabot/core/logger"
)

// Server owns the HTTP listener for the webhook endpoints.
type Server struct {
	srv *http.Server
}

// NewServer assembles the route table and middleware chain.
func NewServer(listen string, port int, handler *Handler) *Server {
	mux := http.NewServeMux()
	mux.Handle("/webhook", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := net.JoinHostPort(listen, strconv.Itoa(port))
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           WithRecovery(WithRequestID(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Hook.Info("webhook listening",
		slog.String("event", "hook.listen"),
		slog.String("addr", s.srv.Addr),
	)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook: serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
