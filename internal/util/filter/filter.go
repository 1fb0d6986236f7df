// Package filter selects file records by name: glob include/exclude
// patterns and case-insensitive search terms.
package filter

import (
	"path/filepath"
	"strings"

	"github.com/easyfiletransfer/eft/internal/models"
)

// Config holds filter configuration.
type Config struct {
	// Include patterns (glob-style). Empty means include all.
	// Example: []string{"*.dat", "*.txt"}
	Include []string

	// Exclude patterns (glob-style). Takes precedence over Include.
	Exclude []string

	// Search terms (case-insensitive substring match).
	// A name must contain ALL terms.
	Search []string
}

// IsEmpty reports whether the config filters nothing.
func (c Config) IsEmpty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.Search) == 0
}

// Apply returns the records whose names match config, in input order.
func Apply(files []models.FileRecord, config Config) []models.FileRecord {
	if config.IsEmpty() {
		return files
	}

	filtered := make([]models.FileRecord, 0, len(files))
	for _, f := range files {
		if Matches(f.Name, config) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// Matches checks one name against the configuration.
func Matches(name string, config Config) bool {
	// Exclude wins over include.
	for _, pattern := range config.Exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return false
		}
	}

	if len(config.Include) > 0 {
		included := false
		for _, pattern := range config.Include {
			if matched, _ := filepath.Match(pattern, name); matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	lower := strings.ToLower(name)
	for _, term := range config.Search {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}

	return true
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.dat,*.txt" -> []string{"*.dat", "*.txt"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
