// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ramp limits how fast motor throttle and servo angles may change.
//
// A motor starts from rest with a single bounded kick, then moves toward the
// requested value by at most MaxStep per tick. Requests below MinMag stop the
// motor at once.
package ramp

import "math"

// Params are the soft-start constants for one motor.
type Params struct {
	MinMag      float64 // below this the output is forced to zero
	MinStartMag float64 // a motor at rest ignores requests weaker than this
	MaxStartMag float64 // largest jump allowed when leaving rest
	MaxStep     float64 // largest change per tick once running
}

// DefaultParams match the thrusters fitted to the vehicle.
var DefaultParams = Params{
	MinMag:      0.2,
	MinStartMag: 0.3,
	MaxStartMag: 0.5,
	MaxStep:     0.2,
}

// Step returns the throttle to apply this tick given the last applied value
// and the current request. Both are in [-1, 1].
func (p Params) Step(requested, applied float64) float64 {
	requested = Clamp(-1, 1, requested)
	switch {
	case requested == applied:
		return applied
	case math.Abs(requested) < p.MinMag:
		return 0
	case applied == 0 && math.Abs(requested) < p.MinStartMag:
		// dead zone: too weak to start from rest
		return 0
	case applied == 0:
		return math.Copysign(math.Min(math.Abs(requested), p.MaxStartMag), requested)
	}

	delta := requested - applied
	if math.Abs(delta) > p.MaxStep {
		return Clamp(-1, 1, applied+math.Copysign(p.MaxStep, delta))
	}
	return requested
}

// Motor tracks one channel's requested and applied throttle.
type Motor struct {
	Requested float64
	Applied   float64
}

// Tick advances the motor by one step and returns the new applied value.
func (m *Motor) Tick(p Params) float64 {
	m.Applied = p.Step(m.Requested, m.Applied)
	return m.Applied
}

// Clamp bounds v to [lo, hi].
func Clamp[T int | float64](lo, hi, v T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
