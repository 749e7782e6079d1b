package main

import (
	"os"

	"github.com/watzon/fnlist/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
