// Package messages holds the user-facing label catalogs. A Bundle is a
// plain key→format-string lookup resolved once at startup; everything
// downstream formats through it without knowing the locale.
package messages

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// ID names one displayable figure.
type ID int

const (
	Recovered ID = iota
	Hospitalised
	Deaths
	Active
	Cases
	Incidence
)

// Bundle formats one figure, plain or with its latest delta. Counts are
// right-aligned so legend rows line up; incidence keeps one decimal.
type Bundle interface {
	Format(id ID, count float64) string
	FormatDelta(id ID, count, delta float64) string
}

type catalog struct {
	plain map[ID]string
	delta map[ID]string
}

func (c catalog) Format(id ID, count float64) string {
	return fmt.Sprintf(c.plain[id], count)
}

func (c catalog) FormatDelta(id ID, count, delta float64) string {
	return fmt.Sprintf(c.delta[id], count, delta)
}

var english = catalog{
	plain: map[ID]string{
		Recovered:    "%6.0f recovered",
		Hospitalised: "%6.0f hospitalised",
		Deaths:       "%6.0f deaths",
		Active:       "%6.0f active cases",
		Cases:        "%6.0f total cases",
		Incidence:    "%6.1f incidence",
	},
	delta: map[ID]string{
		Recovered:    "%6.0f (%+5.0f) recovered",
		Hospitalised: "%6.0f (%+5.0f) hospitalised",
		Deaths:       "%6.0f (%+5.0f) deaths",
		Active:       "%6.0f (%+5.0f) active cases",
		Cases:        "%6.0f (%+5.0f) total cases",
		Incidence:    "%6.1f (%+5.1f) incidence",
	},
}

var german = catalog{
	plain: map[ID]string{
		Recovered:    "%6.0f Genesene",
		Hospitalised: "%6.0f Krankenhauseinweisungen",
		Deaths:       "%6.0f Sterbefälle",
		Active:       "%6.0f aktive Fälle",
		Cases:        "%6.0f Fälle",
		Incidence:    "%6.1f Inzidenz",
	},
	delta: map[ID]string{
		Recovered:    "%6.0f (%+5.0f) Genesene",
		Hospitalised: "%6.0f (%+5.0f) Krankenhauseinweisungen",
		Deaths:       "%6.0f (%+5.0f) Sterbefälle",
		Active:       "%6.0f (%+5.0f) aktive Fälle",
		Cases:        "%6.0f (%+5.0f) Fälle",
		Incidence:    "%6.1f (%+5.1f) Inzidenz",
	},
}

var matcher = language.NewMatcher([]language.Tag{
	language.English, // fallback
	language.German,
})

// ForLocale returns the bundle best matching a locale string such as
// "de", "de_DE.UTF-8" or "en-GB". Anything unmatched falls back to
// English.
func ForLocale(locale string) Bundle {
	tag, err := language.Parse(normalizeLocale(locale))
	if err != nil {
		return english
	}
	_, index, _ := matcher.Match(tag)
	if index == 1 {
		return german
	}
	return english
}

// UserBundle resolves the bundle from the process environment, honoring
// the usual precedence LC_ALL, LC_MESSAGES, LANG.
func UserBundle() Bundle {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return ForLocale(v)
		}
	}
	return english
}

// normalizeLocale turns a POSIX locale like "de_DE.UTF-8@euro" into a
// BCP-47 candidate like "de-DE".
func normalizeLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ReplaceAll(locale, "_", "-")
}
