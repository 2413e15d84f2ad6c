package provider

import (
	"fmt"
	"os"

	bursarErrors "github.com/harunnryd/bursar/internal/errors"

	"gopkg.in/yaml.v3"
)

// Roster maps agent identities to models, with a shared default. The
// document is optional; when present it sits between the explicit override
// and the environment probe in the resolution chain.
type Roster struct {
	Default string            `yaml:"default"`
	Agents  map[string]string `yaml:"agents"`
}

// LoadRoster parses the roster document at path. A missing file yields an
// empty roster; a malformed one is a configuration error.
func LoadRoster(path string) (Roster, error) {
	var roster Roster

	if path == "" {
		return roster, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return roster, nil
		}
		return roster, fmt.Errorf("read model roster %s: %v: %w", path, err, bursarErrors.ErrConfiguration)
	}

	if err := yaml.Unmarshal(data, &roster); err != nil {
		return roster, fmt.Errorf("parse model roster %s: %v: %w", path, err, bursarErrors.ErrConfiguration)
	}
	return roster, nil
}

// ModelFor returns the roster's model for an agent, falling back to the
// roster default, empty when neither is set.
func (r Roster) ModelFor(agentID string) string {
	if model, ok := r.Agents[agentID]; ok && model != "" {
		return model
	}
	return r.Default
}
