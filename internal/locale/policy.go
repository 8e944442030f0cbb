// Package locale decides which language tag to retry with after the
// recognition engine rejects the requested one.
package locale

import (
	"strings"

	"golang.org/x/text/language"

	"foryou/internal/domain"
)

// DefaultFallback is the fixed last-resort locale.
const DefaultFallback = "en-US"

// Policy picks a replacement locale on unsupported-language errors.
type Policy struct {
	// PlatformLocale is the host's preferred locale, tried first.
	PlatformLocale string
	// FallbackLocale is tried after PlatformLocale.
	FallbackLocale string
}

// NewPolicy builds a Policy. An empty fallback uses DefaultFallback.
func NewPolicy(platformLocale, fallbackLocale string) Policy {
	if strings.TrimSpace(fallbackLocale) == "" {
		fallbackLocale = DefaultFallback
	}
	return Policy{PlatformLocale: platformLocale, FallbackLocale: fallbackLocale}
}

// Decide returns the locale to retry with, or false when no fallback applies.
// Only language-not-supported errors are eligible.
func (p Policy) Decide(failedLocale string, kind domain.EngineErrorKind) (string, bool) {
	if kind != domain.EngineErrorLanguageNotSupported {
		return "", false
	}

	failed := Normalize(failedLocale)
	for _, candidate := range p.Candidates() {
		if candidate == failed {
			continue
		}
		return candidate, true
	}
	return "", false
}

// Candidates returns the normalized, non-empty fallback order.
func (p Policy) Candidates() []string {
	out := make([]string, 0, 2)
	for _, tag := range []string{p.PlatformLocale, p.FallbackLocale} {
		if normalized := Normalize(tag); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

// Normalize rewrites underscore separators to hyphens and canonicalizes the
// tag when it is valid BCP-47. Unparseable tags are returned hyphenated.
func Normalize(tag string) string {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return parsed.String()
}

// FromEnvironment extracts a locale from a POSIX locale value such as
// "de_DE.UTF-8". "C" and "POSIX" yield an empty string.
func FromEnvironment(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexAny(value, ".@"); i >= 0 {
		value = value[:i]
	}
	switch value {
	case "", "C", "POSIX":
		return ""
	}
	return Normalize(value)
}
