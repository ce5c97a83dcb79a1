// Command flotabot runs the WhatsApp truck-information bot: webhook server,
// dialogue engine, and idle-conversation sweeper over one Postgres pool.
package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/flotabot/core/bootstrap"
	corecmd "github.com/m3rciful/flotabot/core/cmd"
	coreconfig "github.com/m3rciful/flotabot/core/config"
	"github.com/m3rciful/flotabot/core/whatsapp"
	"github.com/m3rciful/flotabot/dialog"
	"github.com/m3rciful/flotabot/store"
	"github.com/m3rciful/flotabot/sweep"
	"github.com/m3rciful/flotabot/webhook"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		Build:             build,
	})
	if err != nil {
		log.Fatalf("flotabot: %v", err)
	}
}

func build(ctx context.Context, cfg *coreconfig.Config) (corecmd.App, error) {
	opts := bootstrap.Options{Config: cfg}
	if cfg.Session.SeedDemoData {
		opts.Seed = func(ctx context.Context, db *sqlx.DB) error {
			return store.SeedDemoTrucks(ctx, store.New(db))
		}
	}
	result, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	st := store.New(result.DB)
	client := whatsapp.NewClient(whatsapp.Config{
		APIBase:       cfg.WhatsApp.APIBase,
		APIVersion:    cfg.WhatsApp.APIVersion,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
	})

	engine := dialog.NewEngine(client, st.Trucks, st.Conversations, st.Messages, dialog.Options{
		IdleTimeout:  cfg.Session.IdleTimeout,
		DedupWindow:  cfg.Session.DedupWindow,
		PromptWindow: cfg.Session.PromptWindow,
		SendPacing:   cfg.Session.SendPacing,
	})

	handler := webhook.NewHandler(cfg.WhatsApp.VerifyToken, cfg.WhatsApp.AppSecret, engine)
	server := webhook.NewServer(cfg.Webhook.Listen, cfg.Webhook.Port, handler)
	sweeper := sweep.New(st.Conversations, client, cfg.Session.IdleTimeout, cfg.Session.SweepSchedule)

	return &app{db: result.DB, server: server, sweeper: sweeper}, nil
}

type app struct {
	db      *sqlx.DB
	server  *webhook.Server
	sweeper *sweep.Sweeper
}

// Run serves until ctx is cancelled, then drains the HTTP server and closes
// the pool.
func (a *app) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sweeper.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}

	wg.Wait()
	_ = a.db.Close()
	return runErr
}
