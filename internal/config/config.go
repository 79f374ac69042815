package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment variables honoured when the matching config key is empty.
const (
	EnvAPIKey      = "DEEPSEEK_API_KEY"
	EnvAPIBase     = "DEEPSEEK_API_BASE"
	EnvWebhookKey  = "WECHAT_WEBHOOK_KEY"
	EnvTargetField = "TARGET_FIELD"
)

const DefaultWeChatURL = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key={key}"

type Config struct {
	Categories  StringList      `yaml:"category"`
	Keywords    []string        `yaml:"keywords"`
	MaxResults  int             `yaml:"max_results"`
	Window      time.Duration   `yaml:"window"`
	Schedule    string          `yaml:"schedule"`
	Timezone    string          `yaml:"timezone"`
	RunOnStart  *bool           `yaml:"run_on_start"`
	TargetField string          `yaml:"target_field"`
	Fetcher     FetcherConfig   `yaml:"fetcher"`
	LLM         LLMConfig       `yaml:"llm"`
	Publisher   PublisherConfig `yaml:"publisher"`
	Log         LogConfig       `yaml:"log"`
}

type FetcherConfig struct {
	Type      string `yaml:"type"`
	BaseURL   string `yaml:"base_url"`
	DateRange bool   `yaml:"date_range"`
}

type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TargetLanguage string `yaml:"target_language"`
}

type PublisherConfig struct {
	Type    string        `yaml:"type"`
	WeChat  WeChatConfig  `yaml:"wechat"`
	Discord DiscordConfig `yaml:"discord"`
	Email   EmailConfig   `yaml:"email"`
}

type WeChatConfig struct {
	Key string `yaml:"key"`
	URL string `yaml:"url"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StringList accepts either a single scalar or a sequence of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	default:
		return fmt.Errorf("expected a string or a list of strings, got %s", node.Tag)
	}
}

// ShouldRunOnStart reports whether the pipeline runs once before the first
// scheduled trigger.
func (c *Config) ShouldRunOnStart() bool {
	return c.RunOnStart == nil || *c.RunOnStart
}

// HasCredentials reports whether language-model calls can be made.
func (c *Config) HasCredentials() bool {
	return c.LLM.APIKey != "" && !unresolved(c.LLM.APIKey)
}

// Location returns the time zone the schedule is evaluated in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// WeChatWebhookURL returns the webhook URL with the key substituted.
func (c *Config) WeChatWebhookURL() string {
	return strings.ReplaceAll(c.Publisher.WeChat.URL, "{key}", url.QueryEscape(c.Publisher.WeChat.Key))
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// unresolved reports whether s is a ${VAR} reference left behind by
// expandEnvVars because VAR was unset.
func unresolved(s string) bool {
	return placeholderRegex.MatchString(strings.TrimSpace(s))
}

var placeholderRegex = regexp.MustCompile(`^\$\{[^}]+\}$`)

// applyEnv fills empty or unresolved keys from the legacy deployment variables.
func applyEnv(cfg *Config) {
	fill := func(dst *string, env string) {
		if unresolved(*dst) {
			*dst = ""
		}
		if *dst != "" {
			return
		}
		if v, ok := os.LookupEnv(env); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&cfg.LLM.APIKey, EnvAPIKey)
	fill(&cfg.LLM.BaseURL, EnvAPIBase)
	fill(&cfg.Publisher.WeChat.Key, EnvWebhookKey)
	fill(&cfg.TargetField, EnvTargetField)
}

func setDefaults(cfg *Config) {
	if len(cfg.Categories) == 0 {
		cfg.Categories = StringList{"cs.LG"}
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 50
	}
	if cfg.Window == 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 9 * * *"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.Fetcher.Type == "" {
		cfg.Fetcher.Type = "arxiv"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "deepseek-chat"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.LLM.TargetLanguage == "" {
		cfg.LLM.TargetLanguage = "Chinese"
	}
	if cfg.Publisher.Type == "" || cfg.Publisher.Type == "auto" {
		if cfg.Publisher.WeChat.Key != "" {
			cfg.Publisher.Type = "wechat"
		} else {
			cfg.Publisher.Type = "stdout"
		}
	}
	if cfg.Publisher.WeChat.URL == "" {
		cfg.Publisher.WeChat.URL = DefaultWeChatURL
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func validate(cfg *Config) error {
	for _, c := range cfg.Categories {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("config: category must not be empty")
		}
	}
	if cfg.MaxResults < 0 {
		return fmt.Errorf("config: max_results must be positive, got %d", cfg.MaxResults)
	}
	if cfg.Window < 0 {
		return fmt.Errorf("config: window must be positive, got %s", cfg.Window)
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("config: invalid schedule %q: %w", cfg.Schedule, err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", cfg.Timezone, err)
	}
	switch cfg.Fetcher.Type {
	case "arxiv", "rss":
	default:
		return fmt.Errorf("config: unsupported fetcher type %q (supported: arxiv, rss)", cfg.Fetcher.Type)
	}
	switch cfg.Publisher.Type {
	case "stdout", "wechat":
	case "discord":
		if cfg.Publisher.Discord.WebhookURL == "" {
			return fmt.Errorf("config: publisher.discord.webhook_url is required for discord publisher")
		}
	case "email":
		if cfg.Publisher.Email.SMTPHost == "" {
			return fmt.Errorf("config: publisher.email.smtp_host is required for email publisher")
		}
		if len(cfg.Publisher.Email.To) == 0 {
			return fmt.Errorf("config: publisher.email.to is required for email publisher")
		}
		if cfg.Publisher.Email.From == "" {
			return fmt.Errorf("config: publisher.email.from is required for email publisher")
		}
	default:
		return fmt.Errorf("config: unsupported publisher type %q (supported: auto, stdout, wechat, discord, email)", cfg.Publisher.Type)
	}
	if !strings.Contains(cfg.Publisher.WeChat.URL, "{key}") {
		return fmt.Errorf("config: publisher.wechat.url must contain a {key} placeholder")
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q (supported: console, json)", cfg.Log.Format)
	}
	return nil
}

// Load reads the config file, expands environment variables, overlays the
// legacy environment variables, applies defaults, and validates the
// configuration. An empty path builds the configuration from the environment
// alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}

		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOptional behaves like Load but falls back to the environment when the
// file does not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Load("")
	}
	return Load(path)
}
