// Package main is the entry point for the broadcastd application.
package main

import (
	"os"

	"github.com/lanestream/broadcastcore/cmd/broadcastd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
