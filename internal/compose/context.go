package compose

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/harunnryd/bursar/internal/config"
)

// Documents are the opaque context blobs handed to the composer. They come
// from the agent workspace; a missing file is an empty string, never an
// error.
type Documents struct {
	Persona string
	User    string
	Memory  string
}

// LoadDocuments reads the workspace context files named in the config.
func LoadDocuments(cfg config.ContextConfig) Documents {
	return Documents{
		Persona: readOptional(filepath.Join(cfg.Workspace, cfg.PersonaFile)),
		User:    readOptional(filepath.Join(cfg.Workspace, cfg.UserFile)),
		Memory:  readOptional(filepath.Join(cfg.Workspace, cfg.MemoryFile)),
	}
}

func readOptional(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Context document unreadable", "path", path, "error", err)
		}
		return ""
	}
	return string(data)
}
