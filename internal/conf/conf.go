package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/relaybridge/zulip-relay/internal/biz/usecase"
)

// Destination platforms
const (
	DestinationTelegram = "telegram"
	DestinationFeishu   = "feishu"
)

// Config represents application configuration.
// It is loaded once at startup and never modified afterwards.
type Config struct {
	// Zulip (source) configuration
	Zulip ZulipConfig

	// Destination selects the notifier platform
	Destination string

	// Telegram configuration (destination=telegram)
	Telegram TelegramConfig

	// Feishu configuration (destination=feishu)
	Feishu FeishuConfig

	// Delivery-time quieting
	Silence SilenceConfig

	// Relay runtime configuration
	Relay RelayConfig

	// Messages configuration (loaded from YAML)
	Messages *MessagesConfig

	LogLevel string
	Debug    bool

	// params is the ordered dump shown by the params command
	params  []Param
	loadErr error
}

// ZulipConfig contains source platform configuration
type ZulipConfig struct {
	Email             string
	APIKey            string
	Site              string // no trailing slash
	IgnoreOwnMessages bool
	MutePollInterval  time.Duration
	RateLimitDelay    time.Duration
	RateLimitMaxDelay time.Duration
	EventsTimeout     time.Duration
	PollRetryDelay    time.Duration
}

// TelegramConfig contains Telegram bot configuration
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// FeishuConfig contains Feishu app configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
	ChatID    string
}

// SilenceConfig contains silent hours configuration
type SilenceConfig struct {
	Window      domain.SilentWindow
	ForceSilent bool
	ForceAlarm  bool
}

// RelayConfig contains relay runtime configuration
type RelayConfig struct {
	CursorDBPath string // empty keeps the cursor in memory only
	APIAddr      string // empty disables the status API
}

// Param is one entry of the configuration dump
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Set   bool   `json:"set"`
}

// paramKeys are the non-secret settings shown by the params command
var paramKeys = []string{
	"ZULIP_EMAIL",
	"ZULIP_SITE",
	"ZULIP_IGNORE_OWN_MESSAGES",
	"ZULIP_MUTED_STREAMS_POLLING_INTERVAL_SEC",
	"ZULIP_RATE_LIMIT_DELAY",
	"ZULIP_RATE_LIMIT_MAX_DELAY",
	"ZULIP_EVENTS_TIMEOUT_SEC",
	"RELAY_DESTINATION",
	"RELAY_SILENT_FROM",
	"RELAY_SILENT_TO",
	"RELAY_FORCE_SILENT",
	"RELAY_FORCE_ALARM",
	"RELAY_CURSOR_DB_PATH",
}

// legacyKeys maps settings to the names older deployments used for them
var legacyKeys = map[string]string{
	"RELAY_SILENT_FROM":  "TELEGRAM_SILENT_FROM",
	"RELAY_SILENT_TO":    "TELEGRAM_SILENT_TO",
	"RELAY_FORCE_SILENT": "TELEGRAM_FORCE_SILENT",
	"RELAY_FORCE_ALARM":  "TELEGRAM_FORCE_ALARM",
}

// lookupEnv returns the trimmed value of key, falling back to its legacy name.
// The returned key is the one the value was read from.
func lookupEnv(key string) (string, string) {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return key, val
	}
	if legacy, ok := legacyKeys[key]; ok {
		if val := strings.TrimSpace(os.Getenv(legacy)); val != "" {
			return legacy, val
		}
	}
	return key, ""
}

// envReader collects parse errors while reading variables,
// so Validate can report the first malformed value.
type envReader struct {
	err error
}

func (r *envReader) fail(field, message string) {
	if r.err == nil {
		r.err = &ConfigError{Field: field, Message: message}
	}
}

func (r *envReader) str(key, def string) string {
	if _, val := lookupEnv(key); val != "" {
		return val
	}
	return def
}

func (r *envReader) boolean(key string, def bool) bool {
	key, val := lookupEnv(key)
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	r.fail(key, fmt.Sprintf("invalid boolean %q", val))
	return def
}

// seconds reads a positive number of seconds; def <= 0 makes the key required
func (r *envReader) seconds(key string, def int) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		if def <= 0 {
			r.fail(key, "required")
		}
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		r.fail(key, fmt.Sprintf("invalid positive integer %q", val))
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}

func (r *envReader) timeOfDay(key, def string) domain.TimeOfDay {
	key, val := lookupEnv(key)
	if val == "" {
		val = def
	}
	t, err := domain.ParseTimeOfDay(val)
	if err != nil {
		r.fail(key, err.Error())
	}
	return t
}

// LoadFromEnv loads configuration from environment variables.
// Malformed values are reported by Validate.
func LoadFromEnv() *Config {
	r := &envReader{}

	cfg := &Config{
		Zulip: ZulipConfig{
			Email:             r.str("ZULIP_EMAIL", ""),
			APIKey:            r.str("ZULIP_API_KEY", ""),
			Site:              strings.TrimRight(r.str("ZULIP_SITE", ""), "/"),
			IgnoreOwnMessages: r.boolean("ZULIP_IGNORE_OWN_MESSAGES", true),
			MutePollInterval:  r.seconds("ZULIP_MUTED_STREAMS_POLLING_INTERVAL_SEC", 0),
			RateLimitDelay:    r.seconds("ZULIP_RATE_LIMIT_DELAY", 0),
			RateLimitMaxDelay: r.seconds("ZULIP_RATE_LIMIT_MAX_DELAY", 0),
			EventsTimeout:     r.seconds("ZULIP_EVENTS_TIMEOUT_SEC", 90),
			PollRetryDelay:    r.seconds("ZULIP_POLL_RETRY_DELAY_SEC", 3),
		},
		Destination: strings.ToLower(r.str("RELAY_DESTINATION", DestinationTelegram)),
		Telegram: TelegramConfig{
			BotToken: r.str("TELEGRAM_BOT_TOKEN", ""),
		},
		Feishu: FeishuConfig{
			AppID:     r.str("FEISHU_APP_ID", ""),
			AppSecret: r.str("FEISHU_APP_SECRET", ""),
			ChatID:    r.str("FEISHU_CHAT_ID", ""),
		},
		Silence: SilenceConfig{
			Window: domain.SilentWindow{
				From: r.timeOfDay("RELAY_SILENT_FROM", "22:00"),
				To:   r.timeOfDay("RELAY_SILENT_TO", "08:00"),
			},
			ForceSilent: r.boolean("RELAY_FORCE_SILENT", false),
			ForceAlarm:  r.boolean("RELAY_FORCE_ALARM", false),
		},
		Relay: RelayConfig{
			CursorDBPath: r.str("RELAY_CURSOR_DB_PATH", ""),
			APIAddr:      os.Getenv("RELAY_API_ADDR"),
		},
		LogLevel: strings.ToLower(r.str("LOG_LEVEL", "info")),
		Debug:    r.boolean("DEBUG", false),
	}

	if _, set := os.LookupEnv("RELAY_API_ADDR"); !set {
		cfg.Relay.APIAddr = "127.0.0.1:9877"
	}

	if cfg.Destination == DestinationTelegram {
		if val := r.str("TELEGRAM_CHAT_ID", ""); val != "" {
			chatID, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				r.fail("TELEGRAM_CHAT_ID", fmt.Sprintf("invalid chat id %q", val))
			}
			cfg.Telegram.ChatID = chatID
		}
	}

	messages, err := LoadMessagesConfig(os.Getenv("RELAY_MESSAGES_CONFIG"))
	if err != nil {
		r.fail("RELAY_MESSAGES_CONFIG", err.Error())
		messages = DefaultMessagesConfig()
	}
	cfg.Messages = messages

	for _, key := range paramKeys {
		val, set := os.LookupEnv(key)
		if legacy, ok := legacyKeys[key]; ok && !set {
			val, set = os.LookupEnv(legacy)
		}
		cfg.params = append(cfg.params, Param{Key: key, Value: val, Set: set})
	}

	cfg.loadErr = r.err
	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.loadErr != nil {
		return c.loadErr
	}

	if c.Zulip.Email == "" {
		return &ConfigError{Field: "ZULIP_EMAIL", Message: "required"}
	}
	if c.Zulip.APIKey == "" {
		return &ConfigError{Field: "ZULIP_API_KEY", Message: "required"}
	}
	if c.Zulip.Site == "" {
		return &ConfigError{Field: "ZULIP_SITE", Message: "required"}
	}
	u, err := url.Parse(c.Zulip.Site)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "ZULIP_SITE", Message: "must be an http(s) URL"}
	}
	if c.Zulip.RateLimitMaxDelay < c.Zulip.RateLimitDelay {
		return &ConfigError{Field: "ZULIP_RATE_LIMIT_MAX_DELAY", Message: "must not be lower than ZULIP_RATE_LIMIT_DELAY"}
	}

	switch c.Destination {
	case DestinationTelegram:
		if c.Telegram.BotToken == "" {
			return &ConfigError{Field: "TELEGRAM_BOT_TOKEN", Message: "required"}
		}
		if c.Telegram.ChatID == 0 {
			return &ConfigError{Field: "TELEGRAM_CHAT_ID", Message: "required"}
		}
	case DestinationFeishu:
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
		}
		if c.Feishu.ChatID == "" {
			return &ConfigError{Field: "FEISHU_CHAT_ID", Message: "required"}
		}
	default:
		return &ConfigError{Field: "RELAY_DESTINATION", Message: fmt.Sprintf("unknown destination %q", c.Destination)}
	}

	return nil
}

// Params returns the configuration dump in display order
func (c *Config) Params() []Param {
	out := make([]Param, len(c.params))
	copy(out, c.params)
	return out
}

// ToSilencePolicy converts to the delivery silence policy
func (c *SilenceConfig) ToSilencePolicy() usecase.SilencePolicy {
	return usecase.SilencePolicy{
		Window:      c.Window,
		ForceSilent: c.ForceSilent,
		ForceAlarm:  c.ForceAlarm,
	}
}

// Self returns the relay account identity as configured
func (c *ZulipConfig) Self() usecase.Identity {
	return usecase.Identity{Email: c.Email}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
