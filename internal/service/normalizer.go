package service

import (
	"regexp"
	"strings"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	dotRunRegex     = regexp.MustCompile(`\.{2,}`)
	hostnameRegex   = regexp.MustCompile(`^[a-z0-9-]+(\.[a-z0-9-]+)+$`)
)

// NormalizeDomain canonicalises a raw domain string. The boolean is false when
// the input is absent or does not have a hostname shape.
func NormalizeDomain(raw string) (domain.Domain, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.Trim(value, ".")
	value = whitespaceRegex.ReplaceAllString(value, "")
	value = dotRunRegex.ReplaceAllString(value, ".")
	if value == "" || !hostnameRegex.MatchString(value) {
		return "", false
	}
	return domain.Domain(value), true
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
