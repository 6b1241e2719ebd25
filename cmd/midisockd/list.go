package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/midisock/internal/midiout"
	"github.com/runger/midisock/internal/ports"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "print available MIDI output device/port pairs and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, err := openDriver()
		if err != nil {
			return err
		}
		defer drv.Close()

		available, err := midiout.Endpoints(drv)
		if err != nil {
			return err
		}
		for _, e := range ports.ListAvailable(available) {
			fmt.Printf("%s\t%s\n", e.Device, e.Port)
		}
		return nil
	},
}
