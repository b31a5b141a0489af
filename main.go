package main

import (
	"os"

	"github.com/staketools/offline-election/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
