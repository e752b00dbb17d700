// Package config provides YAML-based configuration loading for Semaphore.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Semaphore configuration, loaded from semaphore.yaml.
type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Server  ServerConfig  `yaml:"server"`
	Batch   BatchConfig   `yaml:"batch"`
	Queue   QueueConfig   `yaml:"queue"`
	Limits  LimitsConfig  `yaml:"limits"`
	Display DisplayConfig `yaml:"display"`
	Filter  FilterConfig  `yaml:"filter"`
	Stats   StatsConfig   `yaml:"stats"`
	Archive ArchiveConfig `yaml:"archive"`
	Digest  DigestConfig  `yaml:"digest"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// DiscordConfig identifies the downstream webhook.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	BotName    string `yaml:"bot_name"`
	AvatarURL  string `yaml:"avatar_url"`
}

// ServerConfig holds the intake HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BatchConfig controls the dispatch worker's collect-then-send cycle.
type BatchConfig struct {
	WindowMS            int `yaml:"window_ms"`              // collection window per cycle
	MaxSize             int `yaml:"max_size"`               // max events collected per cycle
	InterRequestDelayMS int `yaml:"inter_request_delay_ms"` // pause between requests in one cycle
	MaxRequestsPerCycle int `yaml:"max_requests_per_cycle"` // 0 = unlimited
}

// QueueConfig bounds the intake queue and the retry backlog.
type QueueConfig struct {
	MaxSize  int `yaml:"max_size"`
	MaxRetry int `yaml:"max_retry"`
}

// LimitsConfig holds the Discord character budgets. SafeChars must stay
// strictly below HardChars to leave room for formatting.
type LimitsConfig struct {
	SafeChars int `yaml:"safe_chars"`
	HardChars int `yaml:"hard_chars"`
}

// DisplayConfig controls how relayed messages are decorated in Discord.
type DisplayConfig struct {
	TimestampFormat string `yaml:"timestamp_format"` // Discord <t:..> style letter, "none" disables
	ShowCharacter   *bool  `yaml:"show_character"`
	ShowRadius      *bool  `yaml:"show_radius"`
	ShowLocation    *bool  `yaml:"show_location"`
	ShowChannel     *bool  `yaml:"show_channel"`
}

// FilterConfig restricts which chat channels are relayed. Empty = accept all.
type FilterConfig struct {
	Channels []string `yaml:"channels"`
}

// StatsConfig controls the periodic stats summary log.
type StatsConfig struct {
	LogIntervalSec int `yaml:"log_interval_sec"`
}

// ArchiveConfig enables the local sqlite message archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DigestConfig schedules the daily activity digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// AlertsConfig configures operator notifications.
type AlertsConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values. The defaults are sized
// for roughly 60 concurrent players against Discord's webhook limits
// (5 req / 2 s burst, ~30 req / min sustained).
func (c *Config) applyDefaults() {
	if c.Discord.BotName == "" {
		c.Discord.BotName = "Semaphore"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Batch.WindowMS == 0 {
		c.Batch.WindowMS = 2500
	}
	if c.Batch.MaxSize == 0 {
		c.Batch.MaxSize = 20
	}
	if c.Batch.InterRequestDelayMS == 0 {
		c.Batch.InterRequestDelayMS = 500
	}
	if c.Queue.MaxSize == 0 {
		c.Queue.MaxSize = 500
	}
	if c.Queue.MaxRetry == 0 {
		c.Queue.MaxRetry = 200
	}
	if c.Limits.HardChars == 0 {
		c.Limits.HardChars = 2000
	}
	if c.Limits.SafeChars == 0 {
		c.Limits.SafeChars = 1900
	}
	if c.Stats.LogIntervalSec == 0 {
		c.Stats.LogIntervalSec = 300
	}
	if c.Display.TimestampFormat == "" {
		c.Display.TimestampFormat = "T"
	}
	if c.Display.ShowCharacter == nil {
		c.Display.ShowCharacter = boolPtr(true)
	}
	if c.Display.ShowRadius == nil {
		c.Display.ShowRadius = boolPtr(true)
	}
	if c.Display.ShowLocation == nil {
		c.Display.ShowLocation = boolPtr(false)
	}
	if c.Display.ShowChannel == nil {
		c.Display.ShowChannel = boolPtr(true)
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		c.Archive.Path = "semaphore.db"
	}
	if c.Digest.Enabled && c.Digest.Cron == "" {
		c.Digest.Cron = "0 8 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Discord.WebhookURL == "" {
		errs = append(errs, "discord.webhook_url is required")
	} else if strings.Contains(c.Discord.WebhookURL, "PASTE_YOUR_WEBHOOK") {
		errs = append(errs, "discord.webhook_url is still the placeholder value")
	}
	if c.Limits.SafeChars >= c.Limits.HardChars {
		errs = append(errs, "limits.safe_chars must be below limits.hard_chars")
	}
	if c.Batch.WindowMS < 0 || c.Batch.InterRequestDelayMS < 0 {
		errs = append(errs, "batch delays must not be negative")
	}
	if c.Batch.MaxRequestsPerCycle < 0 {
		errs = append(errs, "batch.max_requests_per_cycle must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BatchWindow returns the collection window as a duration.
func (c *Config) BatchWindow() time.Duration {
	return time.Duration(c.Batch.WindowMS) * time.Millisecond
}

// InterRequestDelay returns the in-cycle pause between requests.
func (c *Config) InterRequestDelay() time.Duration {
	return time.Duration(c.Batch.InterRequestDelayMS) * time.Millisecond
}

// StatsLogInterval returns the interval between periodic stats summary logs.
func (c *Config) StatsLogInterval() time.Duration {
	return time.Duration(c.Stats.LogIntervalSec) * time.Second
}

// TheoreticalCapacity returns the max messages per minute the configured
// window and batch size can move: (60 / window) x max batch size.
func (c *Config) TheoreticalCapacity() int {
	if c.Batch.WindowMS <= 0 {
		return 0
	}
	return int(60 / (float64(c.Batch.WindowMS) / 1000) * float64(c.Batch.MaxSize))
}

// ChannelAllowed reports whether a channel passes the configured allow-list.
func (c *Config) ChannelAllowed(channel string) bool {
	if len(c.Filter.Channels) == 0 {
		return true
	}
	for _, ch := range c.Filter.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

func boolPtr(b bool) *bool { return &b }
