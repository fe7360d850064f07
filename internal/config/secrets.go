package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadSecretFile reads a credential from path, expanding a leading ~.
// Errors carry only the file base name, never the full path.
func ReadSecretFile(path string) (string, error) {
	expanded := expandHome(path)
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("cannot read secret file %s", filepath.Base(expanded))
	}
	return strings.TrimSpace(string(data)), nil
}

// ResolveSecret resolves a credential from an explicit value, an
// environment variable or a file, in that order. When required is false
// an unresolved secret yields an empty string and no error.
func ResolveSecret(value, envName, filePath string, required bool, name string) (string, error) {
	if v := strings.TrimSpace(value); v != "" {
		return v, nil
	}
	if envName != "" {
		if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
			return v, nil
		}
	}

	var fileErr error
	if filePath != "" {
		v, err := ReadSecretFile(filePath)
		if err != nil {
			fileErr = err
		} else if v != "" {
			return v, nil
		}
	}

	if !required {
		return "", nil
	}
	if fileErr != nil {
		return "", fileErr
	}
	var hints []string
	if envName != "" {
		hints = append(hints, "env="+envName)
	}
	if filePath != "" {
		hints = append(hints, "file="+filepath.Base(expandHome(filePath)))
	}
	if len(hints) > 0 {
		return "", fmt.Errorf("missing required %s (%s)", name, strings.Join(hints, ", "))
	}
	return "", fmt.Errorf("missing required %s", name)
}

// MaskSecret returns a printable form of a secret that keeps only the
// last four characters.
func MaskSecret(secret string) string {
	const keep = 4
	runes := []rune(secret)
	if len(runes) <= keep {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-keep) + string(runes[len(runes)-keep:])
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
