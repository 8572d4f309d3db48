/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the action calendar: the HTTP server plus a few
  one-shot maintenance commands sharing the same configuration file.

COMMANDS:
  serve     HTTP API and scheduled compaction, graceful shutdown
  grid      Print a month grid
  compact   Run retention compaction once
  version   Print build information

CONFIGURATION:
  --config  YAML config path (default: actioncal.yaml). A missing file is
            created with defaults on first run.

SEE ALSO:
  - config/config.go: Configuration file
  - factory/engine.go: Engine wiring
  - api/server.go: Router configuration
*/
package main

import (
	"os"
)

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
