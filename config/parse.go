package config

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// Parse reads KEY=VALUE lines. Blank lines, lines starting with '#' and
// lines without '=' are skipped. The value is everything after the first '=', trimmed of
// surrounding whitespace; quotes and '#' inside a value are kept verbatim.
// Later keys override earlier ones.
func Parse(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &ConfigError{Line: lineNo, Err: errors.New("empty key")}
		}
		values[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// ParseFile reads the settings file at path.
func ParseFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Path: path, Err: ErrConfigNotFound}
		}
		return nil, &ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	values, err := Parse(f)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
			return nil, cfgErr
		}
		return nil, &ConfigError{Path: path, Err: err}
	}
	return values, nil
}
