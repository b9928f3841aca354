package main

import (
	"github.com/rs/zerolog/log"
	"github.com/scalarorg/bridge-core/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run bridge")
	}
}
