package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty directory so no config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "PipelinePilot", cfg.Voice.ProductName)
	assert.Equal(t, "Europe/Berlin", cfg.Voice.Timezone)
	assert.Equal(t, 2, cfg.Voice.MaxMissesPerField)
	assert.Equal(t, 10, cfg.Voice.MinFreeTextLen)
	assert.Equal(t, 4*time.Second, cfg.Voice.LLMTimeout())
	assert.Equal(t, time.Hour, cfg.Voice.SessionTTL())
	assert.Equal(t, "memory", cfg.Voice.SessionBackend)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(512), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "mock", cfg.Calendar.Provider)
	assert.Equal(t, "https://api.cal.com", cfg.CalCom.BaseURL)
	assert.Equal(t, "2024-09-04", cfg.CalCom.APIVersion)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.InDelta(t, 5.0, cfg.Salesforce.RequestsPerSecond, 0.001)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 5, cfg.Monitoring.MinCompletedCalls)
	assert.Equal(t, 2500, cfg.Monitoring.MaxP95LatencyMS)
	assert.False(t, cfg.Monitoring.TelegramEnabled())
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
voice:
  product_name: Acme
  max_misses_per_field: 3
calendar:
  provider: calcom
calcom:
  key: cal_live_x
  event_type_id: 4829122
store:
  driver: sqlite
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Acme", cfg.Voice.ProductName)
	assert.Equal(t, 3, cfg.Voice.MaxMissesPerField)
	assert.Equal(t, "calcom", cfg.Calendar.Provider)
	assert.Equal(t, 4829122, cfg.CalCom.EventTypeID)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Voice.MinFreeTextLen)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store:\n  driver: sqlite\n"), 0o644))

	t.Setenv("VOICE_STORE_DRIVER", "postgres")
	t.Setenv("VOICE_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("VOICE_SERVER_PORT", "8081")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("voice: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "memory"
	cfg.Voice.MaxMissesPerField = 2
	cfg.Server.Port = 3000
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "serve defaults", mode: "serve"},
		{name: "bad port", mode: "serve", modify: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port 0 is out of range"},
		{name: "unknown driver", mode: "serve", modify: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "store.driver"},
		{name: "twilio token", mode: "serve", modify: func(c *Config) { c.Twilio.ValidateSignature = true }, wantErr: "twilio.auth_token"},
		{name: "salesforce creds", mode: "serve", modify: func(c *Config) { c.Salesforce.Enabled = true }, wantErr: "salesforce.client_id"},
		{name: "monitoring without sink", mode: "serve", modify: func(c *Config) { c.Monitoring.Enabled = true }, wantErr: "monitoring needs"},
		{name: "monitoring telegram", mode: "serve", modify: func(c *Config) {
			c.Monitoring.Enabled = true
			c.Monitoring.TelegramBotToken = "123:abc"
			c.Monitoring.TelegramChatID = 42
		}},
		{name: "notify without sink", mode: "notify", wantErr: "notify needs"},
		{name: "notify webhook", mode: "notify", modify: func(c *Config) { c.Monitoring.WebhookURL = "http://hooks.local" }},
		{name: "misses", mode: "demo", modify: func(c *Config) { c.Voice.MaxMissesPerField = 0 }, wantErr: "max_misses_per_field"},
		{name: "migrate memory", mode: "migrate", wantErr: "migrate needs"},
		{name: "migrate postgres without url", mode: "migrate", modify: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "store.database_url"},
		{name: "optional postgres without url", mode: "serve", modify: func(c *Config) { c.Store.Driver = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.modify != nil {
				tt.modify(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
