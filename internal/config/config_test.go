package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	// We pass nil for cmd to skip flags
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected default port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}
	if cfg.Gateway.Timeout != DefaultGatewayTimeout {
		t.Errorf("Expected default gateway timeout %s, got %s", DefaultGatewayTimeout, cfg.Gateway.Timeout)
	}
	if cfg.Poll.Schedule != DefaultPollSchedule {
		t.Errorf("Expected default poll schedule %s, got %s", DefaultPollSchedule, cfg.Poll.Schedule)
	}
	if cfg.Models.MaxTokens != DefaultModelMaxTokens {
		t.Errorf("Expected default max tokens %d, got %d", DefaultModelMaxTokens, cfg.Models.MaxTokens)
	}
	if cfg.Context.MemoryMaxChars != DefaultMemoryMaxChars {
		t.Errorf("Expected default memory cap %d, got %d", DefaultMemoryMaxChars, cfg.Context.MemoryMaxChars)
	}
	if cfg.Context.PersonaFile != DefaultPersonaFile {
		t.Errorf("Expected default persona file %s, got %s", DefaultPersonaFile, cfg.Context.PersonaFile)
	}
	if cfg.State.LockMaxRetry != DefaultStateLockMaxRetry {
		t.Errorf("Expected default lock max retry %d, got %d", DefaultStateLockMaxRetry, cfg.State.LockMaxRetry)
	}
	if cfg.Webhook.Enabled {
		t.Error("Expected webhook disabled by default")
	}
	if cfg.Webhook.Path != DefaultWebhookPath {
		t.Errorf("Expected default webhook path %s, got %s", DefaultWebhookPath, cfg.Webhook.Path)
	}
	if cfg.Daemon.ShutdownTimeout != DefaultDaemonShutdownTimeout {
		t.Errorf("Expected default shutdown timeout %s, got %s", DefaultDaemonShutdownTimeout, cfg.Daemon.ShutdownTimeout)
	}
	if len(cfg.Models.Providers) != 3 {
		t.Fatalf("Expected 3 pre-seeded providers, got %d", len(cfg.Models.Providers))
	}
}

func TestLoadEnvOverridesKeysWithUnderscores(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BURSAR_GATEWAY_API_BASE", "https://approvals.env.clawbackx.com")
	t.Setenv("BURSAR_SERVER_LOG_LEVEL", "debug")
	t.Setenv("BURSAR_MODELS_MAX_TOKENS", "2048")
	t.Setenv("BURSAR_POLL_KICK_BUFFER", "32")
	t.Setenv("BURSAR_ALERTS_SLACK_BOT_TOKEN", "xoxb-from-env")
	t.Setenv("BURSAR_MODELS_DEFAULT", "gpt-4o")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Gateway.APIBase != "https://approvals.env.clawbackx.com" {
		t.Errorf("BURSAR_GATEWAY_API_BASE not applied, got %q", cfg.Gateway.APIBase)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("BURSAR_SERVER_LOG_LEVEL not applied, got %q", cfg.Server.LogLevel)
	}
	if cfg.Models.MaxTokens != 2048 {
		t.Errorf("BURSAR_MODELS_MAX_TOKENS not applied, got %d", cfg.Models.MaxTokens)
	}
	if cfg.Poll.KickBuffer != 32 {
		t.Errorf("BURSAR_POLL_KICK_BUFFER not applied, got %d", cfg.Poll.KickBuffer)
	}
	if cfg.Alerts.Slack.BotToken != "xoxb-from-env" {
		t.Errorf("BURSAR_ALERTS_SLACK_BOT_TOKEN not applied, got %q", cfg.Alerts.Slack.BotToken)
	}
	if cfg.Models.Default != "gpt-4o" {
		t.Errorf("BURSAR_MODELS_DEFAULT not applied, got %q", cfg.Models.Default)
	}
}

func TestLoadWithConfigFlag(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte(`
gateway:
  api_base: https://approvals.staging.clawbackx.com
models:
  default: gpt-4o
poll:
  schedule: "@every 30s"
`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", configPath); err != nil {
		t.Fatalf("failed to set config flag: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("failed to load config with --config: %v", err)
	}

	if cfg.Gateway.APIBase != "https://approvals.staging.clawbackx.com" {
		t.Fatalf("expected configured api base, got %s", cfg.Gateway.APIBase)
	}
	if cfg.Models.Default != "gpt-4o" {
		t.Fatalf("expected default model gpt-4o, got %s", cfg.Models.Default)
	}
	if cfg.Poll.Schedule != "@every 30s" {
		t.Fatalf("expected configured schedule, got %s", cfg.Poll.Schedule)
	}
}

func TestLoadWithMissingConfigFlagReturnsError(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("failed to set config flag: %v", err)
	}

	if _, err := Load(cmd); err == nil {
		t.Fatal("expected error when --config points to missing file")
	}
}

func TestLoadInjectsEnvAPIKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.Provider("anthropic").APIKey; got != "sk-ant-test" {
		t.Fatalf("expected anthropic key injected from env, got %q", got)
	}
	if got := cfg.Provider("openai").APIKey; got != "" {
		t.Fatalf("expected empty openai key, got %q", got)
	}
}

func TestLoad_ExpandsConfiguredPaths(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte(`
context:
  workspace: ~/.bursar/workspace
state:
  path: ~/.bursar/workspace/memory/approval-chat-state.json
`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	if err := cmd.Flags().Set("config", configPath); err != nil {
		t.Fatalf("set config flag: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	wantWorkspace := filepath.Join(tmpDir, ".bursar", "workspace")
	if cfg.Context.Workspace != wantWorkspace {
		t.Fatalf("workspace = %q, want %q", cfg.Context.Workspace, wantWorkspace)
	}
	wantState := filepath.Join(wantWorkspace, "memory", "approval-chat-state.json")
	if cfg.StatePath() != wantState {
		t.Fatalf("state path = %q, want %q", cfg.StatePath(), wantState)
	}
}

func TestCredentialsPathPrefersExplicitThenPreferred(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{}
	cfg.Context.Workspace = tmpDir
	cfg.Gateway.CredentialsPath = filepath.Join(tmpDir, "custom-creds.md")
	if got := cfg.CredentialsPath(); got != filepath.Join(tmpDir, "custom-creds.md") {
		t.Fatalf("expected explicit path to win, got %q", got)
	}

	cfg.Gateway.CredentialsPath = ""
	if err := os.MkdirAll(filepath.Join(tmpDir, "memory"), 0755); err != nil {
		t.Fatal(err)
	}
	legacy := filepath.Join(tmpDir, DefaultLegacyCredentialsFile)
	if err := os.WriteFile(legacy, []byte("token: t\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := cfg.CredentialsPath(); got != legacy {
		t.Fatalf("expected legacy fallback %q, got %q", legacy, got)
	}

	preferred := filepath.Join(tmpDir, DefaultCredentialsFile)
	if err := os.WriteFile(preferred, []byte("token: t\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := cfg.CredentialsPath(); got != preferred {
		t.Fatalf("expected preferred path %q, got %q", preferred, got)
	}
}
