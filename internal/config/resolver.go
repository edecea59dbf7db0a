package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolvePath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/tgrelay/tgrelay.yaml → ~/.config/tgrelay/tgrelay.yaml → ./tgrelay.yaml
//
// A missing file is not an error: the relay can
// run from environment variables alone, so an empty path is returned.
func ResolvePath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "tgrelay", "tgrelay.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "tgrelay", "tgrelay.yaml"))
	}

	candidates = append(candidates, "tgrelay.yaml")

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return "", fmt.Errorf("config: %s is a directory", path)
		}
		return path, nil
	}

	return "", nil
}
