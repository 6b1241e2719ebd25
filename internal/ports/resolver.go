package ports

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/runger/midisock/internal/config"
	"golang.org/x/text/unicode/norm"
)

// ErrNoMatch is returned when the selector matches no endpoint.
var ErrNoMatch = errors.New("no matching MIDI output")

// AmbiguousError is returned when the selector matches more than one
// endpoint. Ambiguity is never tie-broken: sending notes to the wrong
// physical output is worse than failing to start.
type AmbiguousError struct {
	Matches []Endpoint
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Matches))
	for i, m := range e.Matches {
		names[i] = m.Display()
	}
	return fmt.Sprintf("ambiguous MIDI output selection (matched %d: %s)",
		len(e.Matches), strings.Join(names, ", "))
}

// Resolved is the single destination chosen by Resolve. Channel is the
// configured 1-based MIDI channel.
type Resolved struct {
	Endpoint Endpoint
	Channel  int
}

// Resolve filters the available endpoints by the device matcher, then
// by the port matcher. Exactly one survivor succeeds; zero yields
// ErrNoMatch and two or more an AmbiguousError. Given the same
// selector and endpoint list the result is deterministic.
func Resolve(sel config.Selector, available []Endpoint) (Resolved, error) {
	candidates, err := filter(sel.Device, available, func(e Endpoint) string { return e.Device })
	if err != nil {
		return Resolved{}, err
	}
	candidates, err = filter(sel.Port, candidates, func(e Endpoint) string { return e.Port })
	if err != nil {
		return Resolved{}, err
	}

	switch len(candidates) {
	case 1:
		return Resolved{Endpoint: candidates[0], Channel: sel.Channel}, nil
	case 0:
		return Resolved{}, ErrNoMatch
	default:
		return Resolved{}, &AmbiguousError{Matches: candidates}
	}
}

// ListAvailable returns display copies of the endpoints with
// text-encoding artifacts corrected. It has no channel dependency and
// is safe to call without a full selector.
func ListAvailable(available []Endpoint) []Endpoint {
	out := make([]Endpoint, len(available))
	for i, e := range available {
		out[i] = Endpoint{
			Device: Heal(e.Device),
			Port:   Heal(e.Port),
			Name:   e.Name,
		}
	}
	return out
}

func filter(m config.Matcher, in []Endpoint, field func(Endpoint) string) ([]Endpoint, error) {
	match, err := compileMatcher(m)
	if err != nil {
		return nil, err
	}
	var out []Endpoint
	for _, e := range in {
		if match(field(e)) {
			out = append(out, e)
		}
	}
	return out, nil
}

// compileMatcher turns a config matcher into a predicate over raw
// field values. Exact matchers compare NFKC+casefolded forms; pattern
// matchers require a full (anchored) case-insensitive match. Both are
// tested against the raw value and its healed variants, so a selector
// written against the corrected name still finds a mojibake endpoint.
func compileMatcher(m config.Matcher) (func(string) bool, error) {
	if m.IsExact() {
		want := normalize(m.Name)
		return func(value string) bool {
			for _, form := range matchForms(value) {
				if form == want {
					return true
				}
			}
			return false
		}, nil
	}

	re, err := regexp.Compile(`(?i)\A(?:` + norm.NFKC.String(m.Regex) + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("compile selector regex: %w", err)
	}
	return func(value string) bool {
		if re.MatchString(norm.NFKC.String(value)) {
			return true
		}
		if looksMojibake(value) {
			for _, v := range mojibakeVariants(value) {
				if re.MatchString(norm.NFKC.String(v)) {
					return true
				}
			}
		}
		return false
	}, nil
}
