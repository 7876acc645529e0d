package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/bridge"
	"github.com/relabs-tech/pubmarine/internal/gps"
)

// runSurfaceGPS reads fixes from the surface GNSS receiver until ctx is
// done, reopening the port after every failure.
func runSurfaceGPS(ctx context.Context, port string, baud int, retry time.Duration, log zerolog.Logger, onFix func(gps.Fix)) {
	open := bridge.SerialOpener(port, baud)
	for ctx.Err() == nil {
		conn, err := open()
		if err != nil {
			log.Warn().Err(err).Msg("GPS open failed")
		} else {
			log.Info().Str("port", port).Int("baud", baud).Msg("GPS serial port open")
			stop := context.AfterFunc(ctx, func() { conn.Close() })
			err = gps.Scan(conn, log, onFix)
			stop()
			conn.Close()
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("GPS read failed")
			}
		}
		select {
		case <-ctx.Done():
		case <-time.After(retry):
		}
	}
}
