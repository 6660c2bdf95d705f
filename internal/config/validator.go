package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jontk/permd/internal/fileperms"
)

// ValidationError represents a configuration error
type ValidationError struct {
	Field      string
	Message    string
	Suggestion string
}

// ValidationWarning represents a configuration warning
type ValidationWarning struct {
	Field   string
	Message string
	Impact  string
}

// ValidationResult represents the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Validate checks the configuration for errors that would make the
// daemon misbehave at runtime. Watch-root existence is a hard error:
// the daemon must not start against a missing tree.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(c.WatchDirs) == 0 {
		result.addError("watchDirs", "no watch directories configured",
			"add at least one directory to watchDirs")
	}

	for _, dir := range c.WatchDirs {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			result.addError("watchDirs", fmt.Sprintf("watch directory %s does not exist", dir),
				"create the directory or remove it from watchDirs")
		case !info.IsDir():
			result.addError("watchDirs", fmt.Sprintf("watch path %s is not a directory", dir),
				"watchDirs entries must be directories")
		}
	}

	if _, err := c.Mode(); err != nil {
		result.addError("desiredPermission", err.Error(),
			"use 1-3 octal digits, e.g. \"644\" or \"777\"")
	}

	if d, err := c.IntervalDuration(); err != nil {
		result.addError("interval", fmt.Sprintf("invalid duration %q", c.Interval),
			"use a Go duration such as \"1h\" or \"30m\"")
	} else if d <= 0 {
		result.addError("interval", "interval must be positive", "use a duration such as \"1h\"")
	}

	if d, err := c.SettleDuration(); err != nil {
		result.addError("settleWindow", fmt.Sprintf("invalid duration %q", c.SettleWindow),
			"use a Go duration such as \"100ms\"")
	} else if d <= 0 {
		result.addError("settleWindow", "settleWindow must be positive", "use a duration such as \"100ms\"")
	}

	// An ignore dir outside every watch root is dead configuration,
	// not an error.
	for _, ignore := range c.IgnoreDirs {
		if !underAnyRoot(ignore, c.WatchDirs) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "ignoreDirs",
				Message: fmt.Sprintf("ignore directory %s is not under any watch directory", ignore),
				Impact:  "the entry has no effect",
			})
		}
	}

	// The config file decides what gets chmodded where; it should not
	// itself be open to everyone.
	if c.Source != "" {
		if info, err := os.Stat(c.Source); err == nil && fileperms.HasWorldAccess(info.Mode()) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "config",
				Message: fmt.Sprintf("config file %s is world-accessible (mode %s)", c.Source, fileperms.Format(info.Mode())),
				Impact:  "the enforcement policy is exposed to all users",
			})
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level %q", c.Log.Level),
			Impact:  "falls back to info",
		})
	}

	return result
}

func (r *ValidationResult) addError(field, message, suggestion string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:      field,
		Message:    message,
		Suggestion: suggestion,
	})
}

// underAnyRoot reports whether path sits at or below one of roots,
// comparing whole path components.
func underAnyRoot(path string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
