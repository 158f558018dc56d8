package main

import "os"

// Build information populated via -ldflags at build time.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

func main() {
	c := newCLI()
	if err := c.execute(c.rootCmd()); err != nil {
		os.Exit(1)
	}
}
