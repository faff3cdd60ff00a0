// Package slug derives unique URL-safe identifiers from titles.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength bounds stored slugs. Applied after collision resolution.
	MaxLength = 200
	// Fallback is used when a title has no ASCII letters or digits.
	Fallback = "post"
)

// ExistsFunc reports whether candidate is already taken by another record.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Normalize lowercases title, folds accents and collapses every run of
// characters outside [a-z0-9] into a single hyphen. Leading and trailing
// hyphens are trimmed.
func Normalize(title string) string {
	folded, _, err := transform.String(foldAccents(), title)
	if err != nil {
		folded = title
	}

	out := make([]rune, 0, len(folded))
	lastDash := false
	for _, ch := range strings.ToLower(strings.TrimSpace(folded)) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			out = append(out, ch)
			lastDash = false
			continue
		}
		if !lastDash {
			out = append(out, '-')
			lastDash = true
		}
	}
	return strings.Trim(string(out), "-")
}

func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Assign returns the first free candidate among base, base-1, base-2, ...
// where base is Normalize(title). The result is truncated to MaxLength only
// after a free candidate was found.
func Assign(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	base := Normalize(title)
	if base == "" {
		base = Fallback
	}

	candidate := base
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return Truncate(candidate), nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// AssignFitted resolves like Assign, but each candidate is cut to fit
// MaxLength before the suffix is appended, so exists always sees the exact
// string that will be stored. Post creation falls back to it once an insert
// hit the unique index, which is the only way a truncated collision surfaces.
func AssignFitted(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	base := Normalize(title)
	if base == "" {
		base = Fallback
	}

	candidate := Truncate(base)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = withSuffix(base, n)
	}
}

func withSuffix(base string, n int) string {
	suffix := "-" + strconv.Itoa(n)
	if keep := MaxLength - len(suffix); len(base) > keep {
		base = strings.TrimRight(base[:keep], "-")
	}
	return base + suffix
}

// Truncate cuts s to MaxLength. Slugs are ASCII so byte length equals rune length.
func Truncate(s string) string {
	if len(s) <= MaxLength {
		return s
	}
	return s[:MaxLength]
}
