package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/runger/midisock/internal/config"
	"github.com/runger/midisock/internal/midiout"
	"github.com/runger/midisock/internal/ports"
)

// RunConfig wires the daemon together.
type RunConfig struct {
	// Selector is the validated destination configuration (required).
	Selector config.Selector

	// Paths locates the socket and lock artifacts (required).
	Paths *config.Paths

	// Driver is the platform MIDI driver (required). The caller owns
	// closing it.
	Driver drivers.Driver

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Hold overrides the Note-On/Note-Off gap.
	Hold time.Duration
}

// Run starts the daemon and blocks until SIGINT/SIGTERM (the shutdown
// signal standing in for the tray's quit action) or a fatal startup
// error.
//
// Startup order matters: the single-instance guard comes first so a
// duplicate start costs nothing (no MIDI handle, no socket), then the
// destination is resolved and opened so misconfiguration fails before
// any client can connect.
func Run(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil || cfg.Paths == nil || cfg.Driver == nil {
		return fmt.Errorf("paths and driver are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	guard, err := Acquire(cfg.Paths.SocketFile(), cfg.Paths.LockFile())
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("acquire instance guard: %w", err)
	}
	defer func() {
		if err := guard.Release(); err != nil {
			logger.Warn("failed to release instance guard", "error", err)
		}
	}()

	available, err := midiout.Endpoints(cfg.Driver)
	if err != nil {
		return err
	}
	resolved, err := ports.Resolve(cfg.Selector, available)
	if err != nil {
		return fmt.Errorf("resolve MIDI output: %w", err)
	}

	sink, err := midiout.Open(cfg.Driver, resolved)
	if err != nil {
		return err
	}
	logger.Info("MIDI output opened",
		"port", sink.String(),
		"channel", resolved.Channel,
	)

	server, err := NewServer(&ServerConfig{
		Guard:  guard,
		Sink:   sink,
		Logger: logger,
		Hold:   cfg.Hold,
	})
	if err != nil {
		sink.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
