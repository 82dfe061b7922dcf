package main

import (
	"os"

	"github.com/netfabrik/netsim/cmd/netsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
