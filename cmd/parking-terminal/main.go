package main

import (
	"errors"
	"fmt"
	"os"

	"parking_terminal/internal"
	"parking_terminal/internal/cli"
)

func main() {
	if err := internal.Run(os.Args[1:]); err != nil {
		if !errors.Is(err, cli.ErrCommandFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
