package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/observability"
	"github.com/relabs-tech/pubmarine/internal/protocol"
	"github.com/relabs-tech/pubmarine/internal/vehicle"
)

// Simulator is a Link with no device behind it. Every interval it reports a
// State built from sensors with the actuators at rest; writes are only
// logged.
type Simulator struct {
	interval time.Duration
	sensors  vehicle.Sensors
	center   int
	log      zerolog.Logger

	mu      sync.Mutex
	handler func(protocol.Command)
	stop    chan struct{}
	once    sync.Once
}

func NewSimulator(interval time.Duration, sensors vehicle.Sensors, servoCenter int, log zerolog.Logger) *Simulator {
	return &Simulator{
		interval: interval,
		sensors:  sensors,
		center:   servoCenter,
		log:      log,
		stop:     make(chan struct{}),
	}
}

func (s *Simulator) OnCommand(fn func(protocol.Command)) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

func (s *Simulator) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("simulated vehicle link running")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticker.C:
			st := s.State()
			observability.RecordCommand(st.Name())
			s.mu.Lock()
			fn := s.handler
			s.mu.Unlock()
			if fn != nil {
				fn(st)
			}
		}
	}
}

// State synthesizes one telemetry record.
func (s *Simulator) State() protocol.State {
	st := protocol.State{
		Throttle: map[protocol.Channel]float64{protocol.X: 0, protocol.Y: 0, protocol.Z: 0},
	}
	for i := range st.Servos {
		st.Servos[i] = s.center
	}
	if s.sensors == nil {
		return st
	}
	r, err := s.sensors.Read()
	if err != nil {
		s.log.Warn().Err(err).Msg("simulated sensor read failed")
		return st
	}
	st.Acc, st.Gyro, st.Depth, st.Bat = r.Acc, r.Gyro, r.Depth, r.Battery
	return st
}

func (s *Simulator) Write(cmd protocol.Command) error {
	s.log.Info().Str("line", protocol.Encode(cmd)).Msg("simulated tx")
	return nil
}

func (s *Simulator) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
