package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/relaybridge/zulip-relay/internal/biz/usecase"
	"gopkg.in/yaml.v3"
)

// MessagesConfig contains the user-visible texts loaded from YAML
type MessagesConfig struct {
	Preview   PreviewMessages   `yaml:"preview"`
	RateLimit RateLimitMessages `yaml:"rate_limit"`
	Commands  CommandMessages   `yaml:"commands"`
}

// PreviewMessages are the labels of a forwarded message
type PreviewMessages struct {
	HeaderIcon     string `yaml:"header_icon"`
	PrivateLabel   string `yaml:"private_label"`
	UnknownSender  string `yaml:"unknown_sender"`
	MentionWarning string `yaml:"mention_warning"`
	LinkLabel      string `yaml:"link_label"`
}

// RateLimitMessages are sent when the source API starts or stops throttling
type RateLimitMessages struct {
	Limited   string `yaml:"limited"`
	Recovered string `yaml:"recovered"`
}

// CommandMessages are used by the destination chat commands
type CommandMessages struct {
	ParamsHeader string `yaml:"params_header"`
	NotSet       string `yaml:"not_set"`
	StatusHeader string `yaml:"status_header"`
}

// DefaultMessagesConfig returns the built-in texts
func DefaultMessagesConfig() *MessagesConfig {
	labels := usecase.DefaultLabels
	return &MessagesConfig{
		Preview: PreviewMessages{
			HeaderIcon:     labels.HeaderIcon,
			PrivateLabel:   labels.PrivateLabel,
			UnknownSender:  labels.UnknownSender,
			MentionWarning: labels.MentionWarning,
			LinkLabel:      labels.LinkLabel,
		},
		RateLimit: RateLimitMessages{
			Limited: "🚨 Zulip API: request limit exceeded (HTTP 429).\n" +
				"Requests are slowed down for now; another message follows once they go through again.",
			Recovered: "✅ Zulip API: requests go through again, the rate limit is no longer hit.",
		},
		Commands: CommandMessages{
			ParamsHeader: "⚙️ <b>Current parameters:</b>",
			NotSet:       "<i>not set</i>",
			StatusHeader: "📊 <b>Relay status:</b>",
		},
	}
}

// LoadMessagesConfig loads the messages configuration from a YAML file.
// With an empty path the usual locations are tried; defaults are used when
// no file exists.
func LoadMessagesConfig(configPath string) (*MessagesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/messages.yaml",
			"/etc/zulip-relay/messages.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "messages.yaml"))
		}
	}

	var data []byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			break
		}
		if configPath != "" {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
	}

	if data == nil {
		return DefaultMessagesConfig(), nil
	}

	var config MessagesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse messages.yaml: %w", err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *MessagesConfig) fillDefaults() {
	defaults := DefaultMessagesConfig()

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}

	fill(&c.Preview.HeaderIcon, defaults.Preview.HeaderIcon)
	fill(&c.Preview.PrivateLabel, defaults.Preview.PrivateLabel)
	fill(&c.Preview.UnknownSender, defaults.Preview.UnknownSender)
	fill(&c.Preview.MentionWarning, defaults.Preview.MentionWarning)
	fill(&c.Preview.LinkLabel, defaults.Preview.LinkLabel)
	fill(&c.RateLimit.Limited, defaults.RateLimit.Limited)
	fill(&c.RateLimit.Recovered, defaults.RateLimit.Recovered)
	fill(&c.Commands.ParamsHeader, defaults.Commands.ParamsHeader)
	fill(&c.Commands.NotSet, defaults.Commands.NotSet)
	fill(&c.Commands.StatusHeader, defaults.Commands.StatusHeader)
}

// ToLabels converts to preview labels
func (c *MessagesConfig) ToLabels() usecase.Labels {
	return usecase.Labels{
		HeaderIcon:     c.Preview.HeaderIcon,
		PrivateLabel:   c.Preview.PrivateLabel,
		UnknownSender:  c.Preview.UnknownSender,
		MentionWarning: c.Preview.MentionWarning,
		LinkLabel:      c.Preview.LinkLabel,
	}
}
