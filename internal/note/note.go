// Package note parses human note names ("C#4", "Bb-1") into MIDI note
// numbers.
//
// The octave convention is fixed as: octave -1, note C == MIDI 0, so
// "C4" is middle C (60) and the full MIDI range runs C-1 .. G9.
package note

import (
	"fmt"
	"strconv"
)

// Semitone offsets within an octave for the letters C..B.
var letterSemitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Parse converts a note name into a MIDI note number (0..127).
// Accepted grammar: a letter A-G (case-insensitive), an optional '#'
// (sharp) or 'b' (flat), and an octave integer that may be negative.
func Parse(name string) (uint8, error) {
	if name == "" {
		return 0, fmt.Errorf("empty note name")
	}

	letter := name[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	semitone, ok := letterSemitones[letter]
	if !ok {
		return 0, fmt.Errorf("invalid note letter %q in %q", string(name[0]), name)
	}

	rest := name[1:]
	if rest == "" {
		return 0, fmt.Errorf("missing octave in %q", name)
	}
	switch rest[0] {
	case '#':
		semitone++
		rest = rest[1:]
	case 'b':
		semitone--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q", name)
	}

	n := (octave+1)*12 + semitone
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %q is outside the MIDI range 0..127", name)
	}
	return uint8(n), nil
}
