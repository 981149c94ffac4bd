package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Voice      VoiceConfig      `yaml:"voice" mapstructure:"voice"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Calendar   CalendarConfig   `yaml:"calendar" mapstructure:"calendar"`
	CalCom     CalComConfig     `yaml:"calcom" mapstructure:"calcom"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Twilio     TwilioConfig     `yaml:"twilio" mapstructure:"twilio"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// VoiceConfig configures the conversation itself.
type VoiceConfig struct {
	ProductName       string `yaml:"product_name" mapstructure:"product_name"`
	Timezone          string `yaml:"timezone" mapstructure:"timezone"`
	FlowPath          string `yaml:"flow_path" mapstructure:"flow_path"`
	MaxMissesPerField int    `yaml:"max_misses_per_field" mapstructure:"max_misses_per_field"`
	MinFreeTextLen    int    `yaml:"min_free_text_len" mapstructure:"min_free_text_len"`
	LLMTimeoutSecs    int    `yaml:"llm_timeout_secs" mapstructure:"llm_timeout_secs"`
	SessionTTLMins    int    `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
	SessionBackend    string `yaml:"session_backend" mapstructure:"session_backend"`
}

// LLMTimeout returns the extraction timeout as a duration.
func (v VoiceConfig) LLMTimeout() time.Duration {
	return time.Duration(v.LLMTimeoutSecs) * time.Second
}

// SessionTTL returns the idle session lifetime as a duration.
func (v VoiceConfig) SessionTTL() time.Duration {
	return time.Duration(v.SessionTTLMins) * time.Minute
}

// AnthropicConfig holds Anthropic API settings for LLM extraction.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// CalendarConfig selects the demo booking provider.
type CalendarConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// CalComConfig holds Cal.com API settings.
type CalComConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	EventTypeID int    `yaml:"event_type_id" mapstructure:"event_type_id"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIVersion  string `yaml:"api_version" mapstructure:"api_version"`
}

// StoreConfig configures the call store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	Required    bool   `yaml:"required" mapstructure:"required"`
}

// RedisConfig configures the Redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`

	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// TwilioConfig configures the Twilio webhook adapter.
type TwilioConfig struct {
	AuthToken         string `yaml:"auth_token" mapstructure:"auth_token"`
	ValidateSignature bool   `yaml:"validate_signature" mapstructure:"validate_signature"`
	PublicBaseURL     string `yaml:"public_base_url" mapstructure:"public_base_url"`
}

// MonitoringConfig configures KPI threshold alerts and status heartbeats.
type MonitoringConfig struct {
	Enabled                bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs      int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours    int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	MinCompletedCalls      int     `yaml:"min_completed_calls" mapstructure:"min_completed_calls"`
	MinConversionPercent   float64 `yaml:"min_conversion_percent" mapstructure:"min_conversion_percent"`
	MaxP95LatencyMS        int     `yaml:"max_p95_latency_ms" mapstructure:"max_p95_latency_ms"`
	MinFastResponsePercent float64 `yaml:"min_fast_response_percent" mapstructure:"min_fast_response_percent"`
	Heartbeat              bool    `yaml:"heartbeat" mapstructure:"heartbeat"`
	HeartbeatPrefix        string  `yaml:"heartbeat_prefix" mapstructure:"heartbeat_prefix"`
	WebhookURL             string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	TelegramBotToken       string  `yaml:"telegram_bot_token" mapstructure:"telegram_bot_token"`
	TelegramChatID         int64   `yaml:"telegram_chat_id" mapstructure:"telegram_chat_id"`
}

// TelegramEnabled reports whether Telegram delivery is configured.
func (m MonitoringConfig) TelegramEnabled() bool {
	return m.TelegramBotToken != "" && m.TelegramChatID != 0
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("voice.product_name", "PipelinePilot")
	v.SetDefault("voice.timezone", "Europe/Berlin")
	v.SetDefault("voice.flow_path", "config/conversation-flow.yaml")
	v.SetDefault("voice.max_misses_per_field", 2)
	v.SetDefault("voice.min_free_text_len", 10)
	v.SetDefault("voice.llm_timeout_secs", 4)
	v.SetDefault("voice.session_ttl_mins", 60)
	v.SetDefault("voice.session_backend", "memory")

	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("anthropic.requests_per_second", 5)

	v.SetDefault("calendar.provider", "mock")
	v.SetDefault("calcom.key", "")
	v.SetDefault("calcom.event_type_id", 0)
	v.SetDefault("calcom.base_url", "https://api.cal.com")
	v.SetDefault("calcom.api_version", "2024-09-04")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "voice-agent.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.required", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("salesforce.enabled", false)
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.requests_per_second", 5)

	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.validate_signature", false)
	v.SetDefault("twilio.public_base_url", "http://localhost:3000")

	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.min_completed_calls", 5)
	v.SetDefault("monitoring.min_conversion_percent", 20)
	v.SetDefault("monitoring.max_p95_latency_ms", 2500)
	v.SetDefault("monitoring.min_fast_response_percent", 80)
	v.SetDefault("monitoring.heartbeat", false)
	v.SetDefault("monitoring.heartbeat_prefix", "Voice Agent Status")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.telegram_bot_token", "")
	v.SetDefault("monitoring.telegram_chat_id", 0)

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the settings a command needs are present. Mode is the
// command name: "serve", "demo", "kpis", "notify" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be memory, sqlite or postgres", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" && (c.Store.Required || mode == "migrate") {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}
	if c.Voice.MaxMissesPerField < 1 {
		errs = append(errs, "voice.max_misses_per_field must be >= 1")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if c.Twilio.ValidateSignature && c.Twilio.AuthToken == "" {
			errs = append(errs, "twilio.auth_token is required when twilio.validate_signature is set")
		}
		if c.Voice.SessionBackend == "redis" && c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required for the redis session backend")
		}
		if c.Salesforce.Enabled && (c.Salesforce.ClientID == "" || c.Salesforce.Username == "" || c.Salesforce.KeyPath == "") {
			errs = append(errs, "salesforce.client_id, salesforce.username and salesforce.key_path are required when salesforce is enabled")
		}
		if c.Monitoring.Enabled && c.Monitoring.WebhookURL == "" && !c.Monitoring.TelegramEnabled() {
			errs = append(errs, "monitoring needs monitoring.webhook_url or monitoring.telegram_bot_token and monitoring.telegram_chat_id")
		}
	case "notify":
		if c.Monitoring.WebhookURL == "" && !c.Monitoring.TelegramEnabled() {
			errs = append(errs, "notify needs monitoring.webhook_url or monitoring.telegram_bot_token and monitoring.telegram_chat_id")
		}
	case "migrate":
		if c.Store.Driver == "memory" {
			errs = append(errs, "migrate needs a sqlite or postgres store")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
