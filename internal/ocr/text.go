package ocr

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanOptions controls text post-processing.
type CleanOptions struct {
	FoldDiacritics     bool // decompose (NFKD) and drop combining marks: "É" -> "E"
	StripNonASCII      bool // drop every rune >= 128
	RemoveControlChars bool
	CollapseWhitespace bool
	Trim               bool
}

// DefaultCleanOptions returns the settings used for annotation labels.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		FoldDiacritics:     true,
		StripNonASCII:      true,
		RemoveControlChars: true,
		CollapseWhitespace: true,
		Trim:               true,
	}
}

// PostProcessText applies opts to s.
func PostProcessText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}
	if opts.FoldDiacritics {
		s = foldDiacritics(s)
	}
	if opts.StripNonASCII {
		s = stripNonASCII(s)
	}
	if opts.RemoveControlChars {
		s = removeControlChars(s)
	}
	if opts.CollapseWhitespace {
		s = wsRe.ReplaceAllString(s, " ")
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	return s
}

// CleanupText makes recognizer output safe to draw with the basic font: it
// folds accents, drops the remaining non-ASCII runes and trims whitespace.
func CleanupText(s string) string {
	return PostProcessText(s, DefaultCleanOptions())
}

var upper = cases.Upper(language.Und)

// NormalizePlate turns recognized text into a lookup key: cleaned, upper
// case, separators removed and only characters from allowed kept. An empty
// allowed set keeps every letter and digit.
func NormalizePlate(s, allowed string) string {
	s = upper.String(CleanupText(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case allowed != "" && strings.ContainsRune(allowed, r):
			b.WriteRune(r)
		case allowed == "" && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPlate reports whether s looks like a plate key: 2 to 10 letters or digits.
func ValidPlate(s string) bool {
	return plateRe.MatchString(s)
}

var (
	wsRe    = regexp.MustCompile(`\s+`)
	plateRe = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
