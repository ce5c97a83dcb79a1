package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "github.com/m3rciful/flotabot/core/database"
)

// WhatsAppConfig holds WhatsApp Cloud API credentials and endpoint settings.
type WhatsAppConfig struct {
	APIBase       string `yaml:"api_base" envconfig:"WA_API_BASE"`
	APIVersion    string `yaml:"api_version" envconfig:"WA_API_VERSION"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"WA_PHONE_NUMBER_ID"`
	AccessToken   string `yaml:"access_token" envconfig:"WA_ACCESS_TOKEN"`
	// VerifyToken is the shared secret echoed back during the webhook handshake.
	VerifyToken string `yaml:"verify_token" envconfig:"WA_VERIFY_TOKEN"`
	// AppSecret enables X-Hub-Signature-256 validation when non-empty.
	AppSecret string `yaml:"app_secret" envconfig:"WA_APP_SECRET"`
}

// WebhookConfig specifies where the inbound HTTP adapter listens.
type WebhookConfig struct {
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// SessionConfig tunes the conversation policy knobs.
type SessionConfig struct {
	// IdleTimeout is the single inactivity threshold shared by the inline
	// reset check and the background sweeper.
	IdleTimeout time.Duration `yaml:"idle_timeout" envconfig:"SESSION_IDLE_TIMEOUT"`
	// DedupWindow suppresses identical outbound bodies within this span.
	DedupWindow time.Duration `yaml:"dedup_window" envconfig:"SESSION_DEDUP_WINDOW"`
	// PromptWindow suppresses plate re-prompts when anything was sent recently.
	PromptWindow time.Duration `yaml:"prompt_window" envconfig:"SESSION_PROMPT_WINDOW"`
	// SendPacing is the delay between parts of a multi-part reply.
	SendPacing time.Duration `yaml:"send_pacing" envconfig:"SESSION_SEND_PACING"`
	// SweepSchedule is a cron expression driving the inactivity sweeper.
	SweepSchedule string `yaml:"sweep_schedule" envconfig:"SESSION_SWEEP_SCHEDULE"`
	// SeedDemoData loads the demo truck fleet at startup when true.
	SeedDemoData bool `yaml:"seed_demo_data" envconfig:"SESSION_SEED_DEMO_DATA"`
}

// Config aggregates the full application configuration.
type Config struct {
	WhatsApp WhatsAppConfig      `yaml:"whatsapp"`
	Webhook  WebhookConfig       `yaml:"webhook"`
	Database coredatabase.Config `yaml:"database"`
	Logging  LoggingConfig       `yaml:"logging"`
	Session  SessionConfig       `yaml:"session"`
}

const (
	defaultAPIBase       = "https://graph.facebook.com"
	defaultAPIVersion    = "v21.0"
	defaultIdleTimeout   = 30 * time.Minute
	defaultDedupWindow   = 10 * time.Second
	defaultPromptWindow  = 10 * time.Second
	defaultSendPacing    = 600 * time.Millisecond
	defaultSweepSchedule = "*/5 * * * *"
)

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.WhatsApp.AccessToken) == "" {
		return fmt.Errorf("whatsapp.access_token is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp.phone_number_id is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.VerifyToken) == "" {
		return fmt.Errorf("whatsapp.verify_token is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.APIBase) == "" {
		cfg.WhatsApp.APIBase = defaultAPIBase
	}
	cfg.WhatsApp.APIBase = strings.TrimRight(cfg.WhatsApp.APIBase, "/")
	if strings.TrimSpace(cfg.WhatsApp.APIVersion) == "" {
		cfg.WhatsApp.APIVersion = defaultAPIVersion
	}

	if strings.TrimSpace(cfg.Webhook.Listen) == "" {
		cfg.Webhook.Listen = "0.0.0.0"
	}
	if cfg.Webhook.Port <= 0 {
		return fmt.Errorf("webhook.port must be > 0")
	}

	if cfg.Session.IdleTimeout <= 0 {
		cfg.Session.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Session.DedupWindow <= 0 {
		cfg.Session.DedupWindow = defaultDedupWindow
	}
	if cfg.Session.PromptWindow <= 0 {
		cfg.Session.PromptWindow = defaultPromptWindow
	}
	if cfg.Session.SendPacing < 0 {
		return fmt.Errorf("session.send_pacing must be >= 0")
	}
	if cfg.Session.SendPacing == 0 {
		cfg.Session.SendPacing = defaultSendPacing
	}

	sched := strings.TrimSpace(cfg.Session.SweepSchedule)
	if sched == "" {
		sched = defaultSweepSchedule
	}
	if !gronx.New().IsValid(sched) {
		return fmt.Errorf("invalid session.sweep_schedule %q", cfg.Session.SweepSchedule)
	}
	cfg.Session.SweepSchedule = sched

	return nil
}
