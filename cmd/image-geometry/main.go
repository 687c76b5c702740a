// Package main is the entry point for the image-geometry CLI
package main

import (
	"os"

	"github.com/menta2k/image-geometry/internal/cli"
)

// version and build info are set at build time via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version)
	cli.SetBuildInfo(commit, buildTime)
	if err := cli.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
