package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/bursar/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Gateway GatewayConfig `koanf:"gateway"`
	Models  ModelsConfig  `koanf:"models"`
	Poll    PollConfig    `koanf:"poll"`
	State   StateConfig   `koanf:"state"`
	Context ContextConfig `koanf:"context"`
	Webhook WebhookConfig `koanf:"webhook"`
	Alerts  AlertsConfig  `koanf:"alerts"`
	Daemon  DaemonConfig  `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

// GatewayConfig covers the approval feed connection. APIBase, AgentID, and
// Token override the credentials document when set; the document remains the
// usual source for all three.
type GatewayConfig struct {
	APIBase         string `koanf:"api_base"`
	AgentID         string `koanf:"agent_id"`
	Token           string `koanf:"token"`
	CredentialsPath string `koanf:"credentials_path"`
	Timeout         string `koanf:"timeout"`
}

type ModelsConfig struct {
	Default    string             `koanf:"default"`
	Override   string             `koanf:"override"`
	RosterPath string             `koanf:"roster_path"`
	MaxTokens  int                `koanf:"max_tokens"`
	// FallbackReply posts a canned apology when generation fails for good,
	// instead of retrying the message on a later cycle.
	FallbackReply bool               `koanf:"fallback_reply"`
	Providers     []ProviderSettings `koanf:"providers"`
}

// ProviderSettings carries per-provider credentials. BaseURL is only
// meaningful for openai-compatible endpoints.
type ProviderSettings struct {
	Kind    string `koanf:"kind"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type PollConfig struct {
	Schedule   string `koanf:"schedule"`
	KickBuffer int    `koanf:"kick_buffer"`
}

type StateConfig struct {
	Path         string `koanf:"path"`
	LockTimeout  string `koanf:"lock_timeout"`
	LockRetry    string `koanf:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry"`
}

type ContextConfig struct {
	Workspace      string `koanf:"workspace"`
	PersonaFile    string `koanf:"persona_file"`
	UserFile       string `koanf:"user_file"`
	MemoryFile     string `koanf:"memory_file"`
	MemoryMaxChars int    `koanf:"memory_max_chars"`
	MemoryIndex    bool   `koanf:"memory_index"`
	MemoryIndexDir string `koanf:"memory_index_dir"`
}

type WebhookConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
	Secret  string `koanf:"secret"`
}

type AlertsConfig struct {
	Cooldown string              `koanf:"cooldown"`
	Slack    SlackAlertConfig    `koanf:"slack"`
	Telegram TelegramAlertConfig `koanf:"telegram"`
	Command  string              `koanf:"command"`
}

type SlackAlertConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	Channel  string `koanf:"channel"`
}

type TelegramAlertConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	ChatID   int64  `koanf:"chat_id"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval"`
	StaleLockTTL        string `koanf:"stale_lock_ttl"`
}

const (
	DefaultServerPort            = 8080
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "10s"
	DefaultServerWriteTimeout    = "10s"
	DefaultServerShutdownTimeout = "5s"

	DefaultGatewayAPIBase = "https://approvals.clawbackx.com"
	DefaultGatewayTimeout = "10s"

	// Credentials and state live under the workspace, same layout the
	// gateway tooling writes.
	DefaultCredentialsFile       = "memory/approval-gateway-credentials.md"
	DefaultLegacyCredentialsFile = "memory/approval-gateway-credentials-simple.md"
	DefaultStateFile             = "memory/approval-chat-state.json"

	DefaultModelMaxTokens = 1024

	DefaultPollSchedule   = "@every 5s"
	DefaultPollKickBuffer = 16

	DefaultStateLockTimeout  = "30s"
	DefaultStateLockRetry    = "100ms"
	DefaultStateLockMaxRetry = 300

	DefaultPersonaFile    = "SOUL.md"
	DefaultUserFile       = "USER.md"
	DefaultMemoryFile     = "MEMORY.md"
	DefaultMemoryMaxChars = 2000

	DefaultWebhookPath = "/hooks/approval"

	DefaultAlertCooldown = "15m"

	DefaultDaemonShutdownTimeout     = "30s"
	DefaultDaemonHealthCheckInterval = "30s"
	DefaultDaemonStaleLockTTL        = "15m"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":             DefaultServerPort,
		"server.log_level":        DefaultServerLogLevel,
		"server.read_timeout":     DefaultServerReadTimeout,
		"server.write_timeout":    DefaultServerWriteTimeout,
		"server.shutdown_timeout": DefaultServerShutdownTimeout,
		"gateway.api_base":        "",
		"gateway.agent_id":        "",
		"gateway.token":           "",
		"gateway.credentials_path": "",
		"gateway.timeout":         DefaultGatewayTimeout,
		"models.default":          "",
		"models.override":         "",
		"models.roster_path":      filepath.Join(os.Getenv("HOME"), ".bursar", "models.yaml"),
		"models.max_tokens":       DefaultModelMaxTokens,
		"models.fallback_reply":   false,
		"models.providers": []ProviderSettings{
			{Kind: "anthropic"},
			{Kind: "openai"},
			{Kind: "gemini"},
		},
		"poll.schedule":                DefaultPollSchedule,
		"poll.kick_buffer":             DefaultPollKickBuffer,
		"state.path":                   "",
		"state.lock_timeout":           DefaultStateLockTimeout,
		"state.lock_retry":             DefaultStateLockRetry,
		"state.lock_max_retry":         DefaultStateLockMaxRetry,
		"context.workspace":            filepath.Join(os.Getenv("HOME"), ".bursar", "workspace"),
		"context.persona_file":         DefaultPersonaFile,
		"context.user_file":            DefaultUserFile,
		"context.memory_file":          DefaultMemoryFile,
		"context.memory_max_chars":     DefaultMemoryMaxChars,
		"context.memory_index":         false,
		"context.memory_index_dir":     "",
		"webhook.enabled":              false,
		"webhook.path":                 DefaultWebhookPath,
		"webhook.secret":               "",
		"alerts.cooldown":              DefaultAlertCooldown,
		"alerts.command":               "",
		"alerts.slack.enabled":         false,
		"alerts.slack.bot_token":       "",
		"alerts.slack.channel":         "",
		"alerts.telegram.enabled":      false,
		"alerts.telegram.bot_token":    "",
		"alerts.telegram.chat_id":      int64(0),
		"daemon.shutdown_timeout":      DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval": DefaultDaemonHealthCheckInterval,
		"daemon.stale_lock_ttl":        DefaultDaemonStaleLockTTL,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".bursar", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables. Key names contain underscores of their own
	// (BURSAR_GATEWAY_API_BASE is gateway.api_base, not gateway.api.base),
	// so known keys are matched against the defaults table and only unknown
	// ones fall back to splitting on the first underscore.
	envKeys := make(map[string]string, len(defaults))
	for key := range defaults {
		envKeys[strings.ReplaceAll(key, ".", "_")] = key
	}
	if err := k.Load(env.Provider("BURSAR_", ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, "BURSAR_"))
		if key, ok := envKeys[name]; ok {
			return key
		}
		return strings.Replace(name, "_", ".", 1)
	}), nil); err != nil {
		slog.Warn("Failed to load environment config", "error", err)
	}

	// CLI Flags
	if cmd != nil {
		if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
			slog.Warn("Failed to load flag config", "error", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	// Post-Process: Inject standard Env Vars if missing
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		for i, p := range cfg.Models.Providers {
			if p.Kind == "anthropic" && p.APIKey == "" {
				cfg.Models.Providers[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		for i, p := range cfg.Models.Providers {
			if (p.Kind == "openai" || p.Kind == "openai-compatible") && p.APIKey == "" {
				cfg.Models.Providers[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		for i, p := range cfg.Models.Providers {
			if p.Kind == "gemini" && p.APIKey == "" {
				cfg.Models.Providers[i].APIKey = key
			}
		}
	}

	return &cfg, nil
}

// Provider returns the settings entry for a provider kind, or an empty entry
// when none is configured.
func (c *Config) Provider(kind string) ProviderSettings {
	for _, p := range c.Models.Providers {
		if p.Kind == kind {
			return p
		}
	}
	return ProviderSettings{Kind: kind}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	workspace, err := expandConfiguredPath(cfg.Context.Workspace)
	if err != nil {
		return err
	}
	if workspace != "" {
		cfg.Context.Workspace = workspace
	}

	statePath, err := expandConfiguredPath(cfg.State.Path)
	if err != nil {
		return err
	}
	if statePath != "" {
		cfg.State.Path = statePath
	}

	credentialsPath, err := expandConfiguredPath(cfg.Gateway.CredentialsPath)
	if err != nil {
		return err
	}
	if credentialsPath != "" {
		cfg.Gateway.CredentialsPath = credentialsPath
	}

	rosterPath, err := expandConfiguredPath(cfg.Models.RosterPath)
	if err != nil {
		return err
	}
	if rosterPath != "" {
		cfg.Models.RosterPath = rosterPath
	}

	indexDir, err := expandConfiguredPath(cfg.Context.MemoryIndexDir)
	if err != nil {
		return err
	}
	if indexDir != "" {
		cfg.Context.MemoryIndexDir = indexDir
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	return pathutil.Expand(trimmed)
}

// StatePath resolves the dedup state document location, defaulting to the
// workspace-relative layout when no explicit path is configured.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	return filepath.Join(c.Context.Workspace, DefaultStateFile)
}

// CredentialsPath resolves the credentials document location. When no
// explicit path is configured the preferred workspace file wins, falling
// back to the legacy name if only that exists.
func (c *Config) CredentialsPath() string {
	if c.Gateway.CredentialsPath != "" {
		return c.Gateway.CredentialsPath
	}
	preferred := filepath.Join(c.Context.Workspace, DefaultCredentialsFile)
	if _, err := os.Stat(preferred); err == nil {
		return preferred
	}
	legacy := filepath.Join(c.Context.Workspace, DefaultLegacyCredentialsFile)
	if _, err := os.Stat(legacy); err == nil {
		return legacy
	}
	return preferred
}
