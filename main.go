package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Usage was already printed.
		if errors.Is(err, errNoMode) {
			os.Exit(1)
		}

		if errors.Is(err, errInterrupted) {
			fmt.Fprintln(os.Stderr, "Interrupted")
			os.Exit(exitInterrupted)
		}

		exitOnError(err)
	}
}
