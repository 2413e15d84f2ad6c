package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/bursar/internal/config"
	bursarErrors "github.com/harunnryd/bursar/internal/errors"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "approval-gateway-credentials.md")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write credentials doc: %v", err)
	}
	return path
}

func TestParseDocument(t *testing.T) {
	path := writeDoc(t, `# Approval gateway credentials
token: sk-bursar-abc123
api_base: https://approvals.staging.clawbackx.com
agent_id: kotubot

notes: ignored field
`)

	creds, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if creds.Token != "sk-bursar-abc123" {
		t.Errorf("token = %q", creds.Token)
	}
	if creds.APIBase != "https://approvals.staging.clawbackx.com" {
		t.Errorf("api_base = %q", creds.APIBase)
	}
	if creds.AgentID != "kotubot" {
		t.Errorf("agent_id = %q", creds.AgentID)
	}
}

func TestParseMissingDocument(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.md"))
	if !errors.Is(err, bursarErrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestResolveAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeDoc(t, "token: file-token\nagent_id: fulbot\n")

	cfg := &config.Config{}
	cfg.Gateway.CredentialsPath = path

	creds, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if creds.APIBase != config.DefaultGatewayAPIBase {
		t.Errorf("expected default api_base, got %q", creds.APIBase)
	}

	// Config overrides beat the document.
	cfg.Gateway.AgentID = "kotubot"
	cfg.Gateway.APIBase = "https://approvals.local/"
	creds, err = Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if creds.AgentID != "kotubot" {
		t.Errorf("agent_id override lost: %q", creds.AgentID)
	}
	if creds.APIBase != "https://approvals.local" {
		t.Errorf("expected trailing slash trimmed, got %q", creds.APIBase)
	}
	if creds.Token != "file-token" {
		t.Errorf("token from document lost: %q", creds.Token)
	}
}

func TestResolveMissingToken(t *testing.T) {
	path := writeDoc(t, "agent_id: fulbot\n")

	cfg := &config.Config{}
	cfg.Gateway.CredentialsPath = path

	_, err := Resolve(cfg)
	if !errors.Is(err, bursarErrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing token, got %v", err)
	}
}

func TestResolveWithoutDocument(t *testing.T) {
	cfg := &config.Config{}
	cfg.Context.Workspace = t.TempDir()
	cfg.Gateway.Token = "env-token"
	cfg.Gateway.AgentID = "kotubot"

	creds, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve should tolerate a missing document when config is complete: %v", err)
	}
	if creds.Token != "env-token" || creds.AgentID != "kotubot" {
		t.Fatalf("unexpected creds: %+v", creds)
	}
}
