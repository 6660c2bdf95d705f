package main

import (
	"os"

	"github.com/jontk/permd/internal/cli"
	"github.com/jontk/permd/internal/logging"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.GetLogger().Error().Err(err).Msg("permd failed")
		os.Exit(1)
	}
}
