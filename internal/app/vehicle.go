// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/hardware"
	"github.com/relabs-tech/pubmarine/internal/logging"
	"github.com/relabs-tech/pubmarine/internal/observability"
	"github.com/relabs-tech/pubmarine/internal/vehicle"
)

// RunVehicle runs the on-board control loop until interrupted or reset.
// RESET SOFT restarts the loop in place; RESET and BOOT hand over to the
// platform, which exits the process.
func RunVehicle() error {
	cfg := config.Get()
	log := logging.Component("vehicle")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := loopOptions(cfg)
	if err != nil {
		return err
	}

	hw, err := hardware.Open(cfg.Hardware, opts.Motors, logging.Component("hardware"))
	if err != nil {
		return fmt.Errorf("hardware: %w", err)
	}

	in, out, closePort, err := openCommandPort(cfg.Vehicle, log)
	if err != nil {
		return err
	}
	defer closePort()

	if cfg.Vehicle.MetricsAddr != "" {
		go serveVehicleMetrics(cfg.Vehicle.MetricsAddr, log)
	}

	platform := vehicle.NewProcessPlatform(cfg.Vehicle.RunModeFile)
	input := vehicle.NewPollReader(in, log)

	for {
		loop := vehicle.NewLoop(opts, input, out, hw, platform, vehicle.WithLogger(log))
		err := loop.Run(ctx)
		switch {
		case errors.Is(err, vehicle.ErrReload):
			log.Info().Msg("soft reset, restarting control loop")
			continue
		case errors.Is(err, context.Canceled):
			log.Info().Msg("vehicle stopped")
			return nil
		default:
			return err
		}
	}
}

// openCommandPort opens the configured serial port, or stdin/stdout when
// none is set.
func openCommandPort(cfg config.Vehicle, log zerolog.Logger) (io.Reader, io.Writer, func(), error) {
	if cfg.Port == "" {
		log.Info().Msg("commands on stdin, telemetry on stdout")
		return os.Stdin, os.Stdout, func() {}, nil
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	log.Info().Str("port", cfg.Port).Int("baud", cfg.BaudRate).Msg("command port open")
	return port, port, func() { port.Close() }, nil
}

func serveVehicleMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
