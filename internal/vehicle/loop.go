// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vehicle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/observability"
	"github.com/relabs-tech/pubmarine/internal/protocol"
	"github.com/relabs-tech/pubmarine/internal/ramp"
)

// Clock abstracts time for the loop cadence.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configure a Loop.
type Options struct {
	Tick        time.Duration
	Ramp        ramp.Params
	Servos      ServoTable
	Motors      []protocol.Channel
	Interactive bool
}

// Loop is the fixed-cadence vehicle control loop: drain input, dispatch
// commands, ramp actuators, report telemetry, sleep out the tick.
type Loop struct {
	opts     Options
	in       Input
	out      io.Writer
	hw       Hardware
	platform Platform
	clock    Clock
	log      zerolog.Logger

	state       *ActuatorState
	framer      *Framer
	lastReading Reading
}

type LoopOption func(*Loop)

func WithClock(c Clock) LoopOption {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

func WithLogger(log zerolog.Logger) LoopOption {
	return func(l *Loop) { l.log = log }
}

func NewLoop(opts Options, in Input, out io.Writer, hw Hardware, platform Platform, loopOpts ...LoopOption) *Loop {
	l := &Loop{
		opts:     opts,
		in:       in,
		out:      out,
		hw:       hw,
		platform: platform,
		clock:    realClock{},
		log:      zerolog.Nop(),
		state:    NewActuatorState(opts.Motors),
		framer:   NewFramer(opts.Interactive),
	}
	for _, o := range loopOpts {
		o(l)
	}
	return l
}

// State exposes the actuator state for inspection.
func (l *Loop) State() *ActuatorState { return l.state }

// SleepDuration is the rest of the tick period after elapsed processing,
// never negative.
func SleepDuration(period, elapsed time.Duration) time.Duration {
	if elapsed >= period {
		return 0
	}
	return period - elapsed
}

// Run starts from a stopped state and ticks until ctx is done or a reset
// is requested. RESET SOFT yields ErrReload.
func (l *Loop) Run(ctx context.Context) error {
	l.state.Stop(l.opts.Servos)
	l.actuate()
	l.log.Info().Dur("tick", l.opts.Tick).Int("motors", len(l.state.Motors)).Msg("control loop started")

	last := l.clock.Now()
	for {
		if err := l.Tick(); err != nil {
			return err
		}
		elapsed := l.clock.Now().Sub(last)
		d := SleepDuration(l.opts.Tick, elapsed)
		observability.RecordTick(d == 0)
		if d == 0 {
			l.log.Debug().Dur("elapsed", elapsed).Msg("tick overran")
		}
		if err := l.clock.Sleep(ctx, d); err != nil {
			return err
		}
		last = l.clock.Now()
	}
}

// Tick runs one iteration without sleeping.
func (l *Loop) Tick() error {
	lines, err := l.framer.Feed(l.in.Poll())
	if err != nil {
		l.fault(err)
	}
	for _, line := range lines {
		if err := l.dispatch(line); err != nil {
			return err
		}
	}
	l.state.Tick(l.opts.Ramp)
	l.actuate()
	l.report()
	return nil
}

func (l *Loop) dispatch(line string) error {
	name, args := protocol.Tokens(line)
	switch name {
	case "":
		return nil
	case protocol.NameMotion:
		for _, err := range l.state.ApplyMotion(args, l.opts.Servos) {
			l.fault(err)
		}
		return nil
	}

	cmd, err := protocol.Decode(line)
	if err != nil {
		l.fault(err)
		return nil
	}
	switch c := cmd.(type) {
	case protocol.Stop:
		l.state.Stop(l.opts.Servos)
	case protocol.Reset:
		switch c.Flag {
		case protocol.ResetSoft:
			if rest := l.framer.Pending(); rest != "" {
				l.log.Debug().Str("discarded", rest).Msg("unterminated input dropped by reload")
			}
			l.state.Stop(l.opts.Servos)
			l.actuate()
			return ErrReload
		case protocol.ResetSafe:
			return l.restart(RunSafeMode)
		default:
			return l.restart(RunNormal)
		}
	case protocol.Boot:
		return l.restart(RunFirmwareUpdate)
	default:
		l.fault(fmt.Errorf("unexpected command %s", cmd.Name()))
	}
	return nil
}

func (l *Loop) restart(mode RunMode) error {
	l.state.Stop(l.opts.Servos)
	l.actuate()
	l.log.Warn().Stringer("mode", mode).Msg("resetting")
	if err := l.platform.Reset(mode); err != nil {
		l.fault(fmt.Errorf("reset failed: %w", err))
		return nil
	}
	return fmt.Errorf("%w: %s", ErrRestart, mode)
}

func (l *Loop) actuate() {
	for c, m := range l.state.Motors {
		if d := l.hw.Motors[c]; d != nil {
			if err := d.SetThrottle(m.Applied); err != nil {
				l.log.Warn().Err(err).Stringer("channel", c).Msg("set throttle failed")
			}
		}
	}
	if !l.state.dirty {
		return
	}
	l.state.dirty = false
	for i, s := range l.hw.Servos {
		if s == nil {
			continue
		}
		if err := s.SetAngle(l.state.Servos[i]); err != nil {
			l.log.Warn().Err(err).Int("servo", i+1).Msg("set angle failed")
		}
	}
	for i, j := range l.hw.Jets {
		if j == nil {
			continue
		}
		if err := j.Set(l.state.Jets[i]); err != nil {
			l.log.Warn().Err(err).Int("jet", i).Msg("set jet failed")
		}
	}
}

func (l *Loop) report() {
	if l.hw.Sensors != nil {
		r, err := l.hw.Sensors.Read()
		if err != nil {
			l.log.Debug().Err(err).Msg("sensor read failed, reporting last reading")
		} else {
			l.lastReading = r
		}
	}
	st := l.state.Snapshot()
	st.Acc = l.lastReading.Acc
	st.Gyro = l.lastReading.Gyro
	st.Depth = l.lastReading.Depth
	st.Bat = l.lastReading.Battery
	l.emit(st)
}

// fault reports a rejected token or line as an ERR line.
func (l *Loop) fault(err error) {
	var cerr *ChannelError
	cause := "protocol"
	if errors.As(err, &cerr) {
		cause = cerr.Kind.Error()
	}
	observability.RecordChannelError(cause)
	l.log.Debug().Err(err).Msg("rejected input")
	l.emit(protocol.Fault{Reason: err.Error()})
}

func (l *Loop) emit(c protocol.Command) {
	if _, err := io.WriteString(l.out, protocol.Encode(c)+"\n"); err != nil {
		l.log.Warn().Err(err).Msg("write to host failed")
	}
}
