// midisockd is the MIDI note-trigger daemon. It opens exactly one
// configured MIDI output and serves single-note requests over a unix
// socket in its working directory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "midisockd: %v\n", err)
		os.Exit(1)
	}
}
