package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves environment variables and a leading "~" to the user's home
// directory. Empty input stays empty.
func Expand(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", nil
	}

	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	return filepath.Clean(p), nil
}
