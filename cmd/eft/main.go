// EasyFileTransfer - command-line client for a personal file-hosting server.
package main

import (
	"os"

	"github.com/easyfiletransfer/eft/internal/cli"
	"github.com/easyfiletransfer/eft/internal/version"
)

// Version information, overridden by ldflags:
//
//	go build -ldflags "-X main.Version=v1.2.0 -X main.BuildTime=$(date -u +%Y-%m-%d)" ./cmd/eft
var (
	Version   = "v1.2.0-dev"
	BuildTime = "unknown"
)

func main() {
	// internal/version is the source every package reads.
	version.Version = Version
	version.BuildTime = BuildTime
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
