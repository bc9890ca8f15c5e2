// Package tags implements per-guild text snippets: create, render with
// a use counter, edit/delete with ownership checks, search and stats.
package tags

import (
	"regexp"
	"strings"

	"github.com/novabot/nova/internal/apperr"
)

const (
	nameMin    = 2
	nameMax    = 32
	contentMax = 2000
	maxPerGuild = 50
)

var namePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// normalizeName lowercases and validates a tag name.
func normalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < nameMin || len(name) > nameMax {
		return "", apperr.Validationf("Tag names must be %d-%d characters long!", nameMin, nameMax)
	}
	if !namePattern.MatchString(name) {
		return "", apperr.Validation("Tag names may only contain lowercase letters, numbers, hyphens and underscores!")
	}
	return name, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("Tag content cannot be empty!")
	}
	if len(content) > contentMax {
		return apperr.Validationf("Tag content cannot exceed %d characters!", contentMax)
	}
	return nil
}
