// Package midiout owns the open handle to the resolved MIDI output
// endpoint and emits Note-On/Note-Off events on it.
package midiout

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/runger/midisock/internal/ports"
)

// Velocity used for every Note-On pulse.
const Velocity = 127

// Endpoints enumerates the platform's MIDI outputs as a read-only
// snapshot. It is taken once at daemon startup; hot-plug events are
// not tracked.
func Endpoints(drv drivers.Driver) ([]ports.Endpoint, error) {
	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("enumerate MIDI outputs: %w", err)
	}
	eps := make([]ports.Endpoint, 0, len(outs))
	for _, out := range outs {
		eps = append(eps, ports.NewEndpoint(out.String()))
	}
	return eps, nil
}

// Sink is an open MIDI output. Methods are not safe for concurrent
// use: the server serializes note dispatch around the whole
// Note-On/Note-Off pair, not per call.
type Sink struct {
	out     drivers.Out
	channel uint8 // 0-based wire channel

	closeOnce sync.Once
	closeErr  error
}

// Open looks the resolved endpoint up by its exact platform name and
// opens it. Failing here usually means the port disappeared between
// resolution and open.
func Open(drv drivers.Driver, dest ports.Resolved) (*Sink, error) {
	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("enumerate MIDI outputs: %w", err)
	}
	for _, out := range outs {
		if out.String() != dest.Endpoint.Name {
			continue
		}
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("open MIDI output %q: %w", ports.Heal(dest.Endpoint.Name), err)
		}
		return &Sink{out: out, channel: uint8(dest.Channel - 1)}, nil
	}
	return nil, fmt.Errorf("MIDI output %q is no longer available", ports.Heal(dest.Endpoint.Name))
}

// NoteOn emits a Note-On for key on the configured channel.
func (s *Sink) NoteOn(key uint8) error {
	if err := s.out.Send(midi.NoteOn(s.channel, key, Velocity).Bytes()); err != nil {
		return fmt.Errorf("send note on: %w", err)
	}
	return nil
}

// NoteOff emits the matching Note-Off.
func (s *Sink) NoteOff(key uint8) error {
	if err := s.out.Send(midi.NoteOff(s.channel, key).Bytes()); err != nil {
		return fmt.Errorf("send note off: %w", err)
	}
	return nil
}

// Close releases the underlying port. Safe to call more than once.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.out.Close()
	})
	return s.closeErr
}

// String returns the healed name of the open endpoint.
func (s *Sink) String() string {
	return ports.Heal(s.out.String())
}
