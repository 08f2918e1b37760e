package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration loading.
var (
	// ErrConfigNotFound indicates the settings file does not exist.
	ErrConfigNotFound = errors.New("config: file not found")
	// ErrInvalidConfig indicates a setting failed validation.
	ErrInvalidConfig = errors.New("config: invalid setting")
	// ErrConfigExists indicates WriteDefault would overwrite an existing file.
	ErrConfigExists = errors.New("config: file already exists")
)

// ConfigError wraps failures to read or parse a settings file.
type ConfigError struct {
	// Path is the settings file path.
	Path string
	// Line is the 1-based line number for parse errors, 0 otherwise.
	Line int
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the configuration error.
func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("config: %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *ConfigError) Unwrap() error { return e.Err }

// ValidationError names the setting and the rule it violates.
type ValidationError struct {
	// Key is the settings file key, e.g. "YOUTUBE_API_KEY".
	Key string
	// Rule describes the violated rule.
	Rule string
}

// Error returns a string representation of the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Rule)
}

// Unwrap reports ErrInvalidConfig.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }
