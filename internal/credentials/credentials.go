package credentials

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/harunnryd/bursar/internal/config"
	bursarErrors "github.com/harunnryd/bursar/internal/errors"
)

// Credentials identifies the daemon against the approval gateway. Token is a
// secret and must never reach logs.
type Credentials struct {
	Token   string
	APIBase string
	AgentID string
}

// Parse reads a credentials document: one "key: value" per line, "#" comments
// and unknown keys ignored. Recognized keys are token, api_base, and agent_id.
func Parse(path string) (Credentials, error) {
	var creds Credentials

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, fmt.Errorf("credentials document %s not found: %w", path, bursarErrors.ErrConfiguration)
		}
		return creds, fmt.Errorf("read credentials document %s: %w", path, bursarErrors.ErrConfiguration)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "token":
			creds.Token = value
		case "api_base":
			creds.APIBase = value
		case "agent_id":
			creds.AgentID = value
		}
	}
	if err := scanner.Err(); err != nil {
		return creds, fmt.Errorf("read credentials document %s: %w", path, bursarErrors.ErrConfiguration)
	}

	return creds, nil
}

// Resolve builds the effective credentials: config overrides beat the
// document, the default api_base fills any remaining gap. Missing token or
// agent_id is a fatal configuration error.
func Resolve(cfg *config.Config) (Credentials, error) {
	var creds Credentials

	path := cfg.CredentialsPath()
	if fromFile, err := Parse(path); err == nil {
		creds = fromFile
	} else if cfg.Gateway.Token == "" || cfg.Gateway.AgentID == "" {
		// The document is optional only when config supplies both secrets.
		return creds, err
	}

	if cfg.Gateway.Token != "" {
		creds.Token = cfg.Gateway.Token
	}
	if cfg.Gateway.AgentID != "" {
		creds.AgentID = cfg.Gateway.AgentID
	}
	if cfg.Gateway.APIBase != "" {
		creds.APIBase = cfg.Gateway.APIBase
	}
	if creds.APIBase == "" {
		creds.APIBase = config.DefaultGatewayAPIBase
	}
	creds.APIBase = strings.TrimRight(creds.APIBase, "/")

	if creds.Token == "" {
		return creds, fmt.Errorf("credentials missing token (document %s): %w", path, bursarErrors.ErrConfiguration)
	}
	if creds.AgentID == "" {
		return creds, fmt.Errorf("credentials missing agent_id (document %s): %w", path, bursarErrors.ErrConfiguration)
	}

	return creds, nil
}
