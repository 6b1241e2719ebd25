// Package ports models MIDI output endpoints and resolves the
// configured destination selector to exactly one of them.
package ports

import "strings"

// Endpoint identifies one concrete MIDI output exposed by the
// platform. Name is the exact platform string needed to open the port;
// Device and Port are the two halves used for selector matching.
type Endpoint struct {
	Device string
	Port   string
	Name   string
}

// NewEndpoint builds an Endpoint from a raw platform port name.
// ALSA-style names ("Client:Port 14:0") split at the first colon; names
// without a colon (CoreMIDI typically) use the whole string for both
// halves.
func NewEndpoint(name string) Endpoint {
	device, port, found := strings.Cut(name, ":")
	if !found {
		return Endpoint{Device: name, Port: name, Name: name}
	}
	return Endpoint{
		Device: strings.TrimSpace(device),
		Port:   strings.TrimSpace(port),
		Name:   name,
	}
}

// Display returns a human-friendly rendering with text-encoding
// artifacts corrected.
func (e Endpoint) Display() string {
	return Heal(e.Name)
}
