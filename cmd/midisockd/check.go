package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/midisock/internal/config"
	"github.com/runger/midisock/internal/midiout"
	"github.com/runger/midisock/internal/ports"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "validate the configuration and print the selected port",
	Long: `check loads config.yaml, resolves the configured device/port
selector against the currently available MIDI outputs and prints the
selection, without starting the daemon.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		available, err := midiout.Endpoints(drv)
		if err != nil {
			return err
		}
		resolved, err := ports.Resolve(cfg.MIDI, available)
		if err != nil {
			printResolveHint(err, drv)
			return err
		}

		fmt.Printf("OK  port=%q  channel=%d\n",
			resolved.Endpoint.Display(), resolved.Channel)
		return nil
	},
}
