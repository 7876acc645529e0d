// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/bridge"
	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/gps"
	"github.com/relabs-tech/pubmarine/internal/hardware"
	"github.com/relabs-tech/pubmarine/internal/hub"
	"github.com/relabs-tech/pubmarine/internal/logging"
	"github.com/relabs-tech/pubmarine/internal/observability"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// openLink returns the serial bridge to the vehicle, or the simulator when
// host.simulate is set.
func openLink(cfg config.Host, servoCenter int, log zerolog.Logger) (bridge.Link, error) {
	if cfg.Simulate {
		interval := time.Duration(cfg.SimulateIntervalMS) * time.Millisecond
		rig := hardware.NewMockRig([]protocol.Channel{protocol.X, protocol.Y, protocol.Z})
		return bridge.NewSimulator(interval, rig.Hardware().Sensors, servoCenter, log), nil
	}

	port, err := bridge.ResolvePort(cfg.Port)
	if err != nil {
		return nil, err
	}
	log.Info().Str("port", port).Int("baud", cfg.BaudRate).Msg("serial bridge")
	return bridge.New(bridge.SerialOpener(port, cfg.BaudRate),
		bridge.WithReadTimeout(time.Duration(cfg.ReadTimeoutMS)*time.Millisecond),
		bridge.WithReopenDelay(time.Duration(cfg.ReopenDelayMS)*time.Millisecond),
		bridge.WithLogger(log),
	), nil
}

// RunHost bridges the vehicle's serial link to viewers over websocket, an
// HTTP API and optionally MQTT.
func RunHost() error {
	cfg := config.Get()
	log := logging.Component("host")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	link, err := openLink(cfg.Host, cfg.Servo.Center, logging.Component("bridge"))
	if err != nil {
		return err
	}
	defer link.Close()

	h := hub.New(hub.WithLogger(logging.Component("hub")))
	go h.Run(ctx)

	last := &latest{}
	cmd := &commander{link: link}

	var relay *mqttRelay
	if cfg.Host.MQTTBroker != "" {
		client, err := connectMQTT(cfg.Host.MQTTBroker, cfg.Host.MQTTClientID, logging.Component("mqtt"))
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		relay = &mqttRelay{client: client, prefix: cfg.Host.MQTTTopicPrefix, log: logging.Component("mqtt")}
		if err := relay.SubscribeCommands(cmd.SendLine); err != nil {
			return err
		}
	}

	link.OnCommand(func(c protocol.Command) {
		last.record(c)
		h.PublishCommand(c)
		if relay != nil {
			relay.PublishCommand(c)
		}
	})

	if cfg.Host.GPSPort != "" {
		go runSurfaceGPS(ctx, cfg.Host.GPSPort, cfg.Host.GPSBaudRate, time.Second, logging.Component("gps"), func(f gps.Fix) {
			last.recordFix(f)
			h.PublishJSON("GPS", f)
			if relay != nil {
				relay.PublishFix(f)
			}
		})
	}

	srv := &http.Server{
		Addr:    cfg.Host.HTTPAddr,
		Handler: newRouter(h, cmd, last, cfg.Host.CORSOrigins, logging.Component("http")),
	}

	errc := make(chan error, 2)
	go func() {
		if err := link.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errc <- fmt.Errorf("vehicle link: %w", err)
		}
	}()
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("web server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-errc:
		log.Error().Err(err).Msg("host failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("web server shutdown")
	}
	return err
}
