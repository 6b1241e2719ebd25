package ports

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Platform MIDI stacks sometimes hand back UTF-8 port names that were
// mis-decoded through a legacy single-byte codepage (common with
// Japanese device names on macOS). Healing re-encodes the string
// through the usual suspect codepages and keeps the variant that turns
// back into valid UTF-8.

// badHints are characters that rarely appear in genuine port names but
// show up constantly in mis-decoded UTF-8.
const badHints = "ÂÃÄÅæðøþ�„ÉêÇπ"

var healCharmaps = []*charmap.Charmap{
	charmap.Windows1252,
	charmap.Macintosh,
	charmap.ISO8859_1,
}

var foldCaser = cases.Fold()

// looksMojibake reports whether s contains any of the mis-decoding
// hint characters.
func looksMojibake(s string) bool {
	return strings.ContainsAny(s, badHints)
}

// mojibakeVariants returns candidate corrected forms of s, obtained by
// round-tripping it through legacy codepages back into UTF-8. Variants
// are deduplicated in order.
func mojibakeVariants(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, cm := range healCharmaps {
		// Strict encode: a rune with no codepage equivalent means this
		// codepage was not the mis-decoding culprit.
		raw, err := cm.NewEncoder().String(s)
		if err != nil {
			continue
		}
		if !utf8.ValidString(raw) || raw == s {
			continue
		}
		if !seen[raw] {
			seen[raw] = true
			out = append(out, raw)
		}
	}
	return out
}

// Heal returns a corrected display form of a port name, or the
// original string when no plausible correction exists. CJK variants
// are preferred since the known mis-decodings affect them most.
func Heal(s string) string {
	if !looksMojibake(s) {
		return s
	}
	variants := mojibakeVariants(s)
	for _, v := range variants {
		if containsCJK(v) {
			return v
		}
	}
	if len(variants) > 0 {
		return variants[0]
	}
	return s
}

func containsCJK(s string) bool {
	for _, r := range s {
		if (r >= 0x3040 && r <= 0x30ff) || (r >= 0x4e00 && r <= 0x9fff) {
			return true
		}
	}
	return false
}

// normalize maps a string into the canonical form used for matching:
// NFKC then Unicode case folding.
func normalize(s string) string {
	return foldCaser.String(norm.NFKC.String(s))
}

// matchForms returns every normalized form a matcher should be tested
// against: the value itself plus its healed variants.
func matchForms(s string) []string {
	forms := []string{normalize(s)}
	if looksMojibake(s) {
		for _, v := range mojibakeVariants(s) {
			forms = append(forms, normalize(v))
		}
	}
	return forms
}
