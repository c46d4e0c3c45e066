package module

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultPrefix derives an event-type prefix from a module key by splitting
// camelCase words and upper-casing them: "userProfiles" -> "USER_PROFILES".
func DefaultPrefix(moduleKey string) string {
	return upperSnake(moduleKey)
}

// EventTypeName builds the canonical event type for a local name:
// ("USERS", "readIfNeeded") -> "USERS/READ_IF_NEEDED".
func EventTypeName(prefix, localName string) string {
	return prefix + "/" + upperSnake(localName)
}

// upperSnake splits s before every upper-case rune (except a leading one),
// joins the words with "_" and upper-cases the result.
func upperSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	// Casers carry state and must not be shared across goroutines.
	return cases.Upper(language.Und).String(b.String())
}
