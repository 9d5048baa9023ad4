package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/spencer-p/tidecast/pkg/logging"
)

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"), true)
	if err := newApp().Run(os.Args); err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}
