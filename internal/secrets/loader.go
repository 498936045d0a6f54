package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env names an environment variable consulted when neither File nor Value
	// yield a secret.
	Env string
}

// Load returns the resolved secret value from the provided source. File takes
// precedence over Value, Value over Env. The returned secret is always trimmed.
// An error is returned when no source contains a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s is not configured (checked %s)", name, env)
	}

	return "", fmt.Errorf("%s is not configured", name)
}

// LoadOptional behaves like Load but returns an empty string instead of an
// error when nothing is configured. Read failures are still reported.
func LoadOptional(src Source) (string, error) {
	if strings.TrimSpace(src.File) != "" {
		return Load(src)
	}
	secret, err := Load(src)
	if err != nil {
		return "", nil
	}
	return secret, nil
}
