package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const minimalYAML = `
whatsapp:
  phone_number_id: "104500"
  access_token: "EAAtesttoken"
  verify_token: "topsecret"
webhook:
  port: 8080
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	require.Equal(t, "https://graph.facebook.com", cfg.WhatsApp.APIBase)
	require.Equal(t, "v21.0", cfg.WhatsApp.APIVersion)
	require.Equal(t, "0.0.0.0", cfg.Webhook.Listen)
	require.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	require.Equal(t, 10*time.Second, cfg.Session.DedupWindow)
	require.Equal(t, 10*time.Second, cfg.Session.PromptWindow)
	require.Equal(t, 600*time.Millisecond, cfg.Session.SendPacing)
	require.Equal(t, "*/5 * * * *", cfg.Session.SweepSchedule)
	require.False(t, cfg.Session.SeedDemoData)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "45m")
	t.Setenv("WA_API_VERSION", "v22.0")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	require.Equal(t, 45*time.Minute, cfg.Session.IdleTimeout)
	require.Equal(t, "v22.0", cfg.WhatsApp.APIVersion)
}

func TestNormalizeRejectsMissingCredentials(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no access token", func(c *Config) { c.WhatsApp.AccessToken = "" }},
		{"no phone number id", func(c *Config) { c.WhatsApp.PhoneNumberID = " " }},
		{"no verify token", func(c *Config) { c.WhatsApp.VerifyToken = "" }},
		{"no port", func(c *Config) { c.Webhook.Port = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.WhatsApp.AccessToken = "EAAtesttoken"
			cfg.WhatsApp.PhoneNumberID = "104500"
			cfg.WhatsApp.VerifyToken = "topsecret"
			cfg.Webhook.Port = 8080
			tc.mutate(cfg)
			require.Error(t, Normalize(cfg))
		})
	}
}

func TestNormalizeValidatesSweepSchedule(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
session:
  sweep_schedule: "not a cron line"
`))
	require.Error(t, err)
	require.Nil(t, cfg)

	cfg, err = Load(writeConfig(t, minimalYAML+`
session:
  sweep_schedule: "0 * * * *"
`))
	require.NoError(t, err)
	require.Equal(t, "0 * * * *", cfg.Session.SweepSchedule)
}

func TestNormalizeTrimsAPIBase(t *testing.T) {
	full := `
whatsapp:
  phone_number_id: "104500"
  access_token: "EAAtesttoken"
  verify_token: "topsecret"
  api_base: "https://graph.example.test/"
webhook:
  port: 8080
`
	cfg, err := Load(writeConfig(t, full))
	require.NoError(t, err)
	require.Equal(t, "https://graph.example.test", cfg.WhatsApp.APIBase)
}
