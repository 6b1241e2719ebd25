package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/runger/midisock/internal/config"
	"github.com/runger/midisock/internal/daemon"
	"github.com/runger/midisock/internal/midiout"
	"github.com/runger/midisock/internal/ports"
)

var (
	flagDir   string
	flagDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "midisockd",
	Short: "single-note MIDI relay daemon",
	Long: `midisockd reads config.yaml, opens exactly one MIDI output
(selected by name or regex) and serves note-trigger requests on a unix
socket next to the config file. Each request sends one short
Note On/Off pulse on the configured channel.`,
	SilenceUsage: true,
	RunE:         runDaemon,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "d", ".",
		"directory holding config.yaml, the socket and the lock file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"enable debug logging (also via MIDISOCK_DEBUG=1)")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagDebug || os.Getenv("MIDISOCK_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func openDriver() (*rtmididrv.Driver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("initialize MIDI driver: %w", err)
	}
	return drv, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	paths := config.PathsIn(flagDir)

	cfg, err := config.Load(paths.ConfigFile())
	if err != nil {
		return err
	}

	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	err = daemon.Run(context.Background(), &daemon.RunConfig{
		Selector: cfg.MIDI,
		Paths:    paths,
		Driver:   drv,
		Logger:   logger,
	})
	if errors.Is(err, daemon.ErrAlreadyRunning) {
		// A live instance already serves the socket; starting again is
		// a no-op, not a failure.
		logger.Info("daemon already running, exiting", "socket", paths.SocketFile())
		return nil
	}
	if err != nil {
		printResolveHint(err, drv)
		return err
	}
	return nil
}

// printResolveHint lists the matched and available ports when startup
// failed because the selector picked none or several.
func printResolveHint(err error, drv drivers.Driver) {
	var ambiguous *ports.AmbiguousError
	isResolve := errors.As(err, &ambiguous) || errors.Is(err, ports.ErrNoMatch)
	if !isResolve {
		return
	}

	if ambiguous != nil {
		fmt.Fprintln(os.Stderr, "Matched:")
		for _, e := range ports.ListAvailable(ambiguous.Matches) {
			fmt.Fprintf(os.Stderr, "  - %s\t%s\n", e.Device, e.Port)
		}
	}
	fmt.Fprintln(os.Stderr, "Hint: edit config.yaml and narrow midi.device/midi.port (name or regex).")

	available, listErr := midiout.Endpoints(drv)
	if listErr != nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Available ports:")
	for i, e := range ports.ListAvailable(available) {
		fmt.Fprintf(os.Stderr, "  %d: %s\t%s\n", i, e.Device, e.Port)
	}
}
