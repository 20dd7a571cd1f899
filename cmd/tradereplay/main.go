package main

import (
	"os"

	"github.com/rustyeddy/tradereplay/cmd/tradereplay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
