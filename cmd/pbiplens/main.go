package main

import (
	"os"

	"github.com/pbiplens/pbiplens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
