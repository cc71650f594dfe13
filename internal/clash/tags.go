// Package clash holds small helpers for Clash of Clans tag and season
// conventions shared across the gateway, orchestrator and web layer.
package clash

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	tagSanitizeRe = regexp.MustCompile(`[^A-Z0-9]`)
	validTagRe    = regexp.MustCompile(`^#[A-Z0-9]{3,}$`)
)

// NormalizeTag uppercases the input, strips everything that is not A-Z0-9
// and prefixes a single '#'. " abc-123 " and "#ABC123" both normalize to
// "#ABC123".
func NormalizeTag(input string) string {
	upper := strings.ToUpper(strings.TrimSpace(input))
	return "#" + tagSanitizeRe.ReplaceAllString(upper, "")
}

func IsValidTag(input string) bool {
	return validTagRe.MatchString(NormalizeTag(input))
}

// EncodeTagForPath percent-encodes a normalized tag for use in an upstream
// URL path segment.
func EncodeTagForPath(tag string) string {
	return url.QueryEscape(NormalizeTag(tag))
}
