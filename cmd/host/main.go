// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/pubmarine/internal/app"
	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file (defaults when empty)")
	flag.Parse()

	logging.ConfigureRuntime()
	log.Info().Msg("starting pubmarine host bridge")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := app.RunHost(); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
