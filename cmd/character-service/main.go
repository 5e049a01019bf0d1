package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/charstore/charstore/characterservice"
)

func main() {
	dbDriver := pflag.String("db-driver", "", "Override CHARSTORE_DB_DRIVER (json, sqlite, postgres)")
	pflag.Parse()

	if err := characterservice.Run(characterservice.Options{DBDriver: *dbDriver}); err != nil {
		log.Error().Err(err).Msg("character-service exited with error")
		os.Exit(1)
	}
}
