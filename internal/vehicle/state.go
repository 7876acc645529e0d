// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vehicle

import (
	"github.com/relabs-tech/pubmarine/internal/protocol"
	"github.com/relabs-tech/pubmarine/internal/ramp"
)

// ServoTable holds the fixed per-channel servo calibration.
type ServoTable struct {
	Center  int
	Offsets [protocol.NumServos]int
}

// Angle returns the hardware angle for a requested angle on servo i.
func (t ServoTable) Angle(i, requested int) int {
	return ramp.ServoAngle(requested, t.Offsets[i])
}

// ActuatorState is the vehicle's whole actuator picture. It is owned by the
// control loop; nothing else mutates it.
type ActuatorState struct {
	Motors map[protocol.Channel]*ramp.Motor // fitted motor channels only
	Servos [protocol.NumServos]int          // applied angles
	Jets   [protocol.NumJets]bool

	// servos or jets changed since the last actuation
	dirty bool
}

// NewActuatorState creates state for the given motor channels, all at rest.
func NewActuatorState(motors []protocol.Channel) *ActuatorState {
	s := &ActuatorState{Motors: make(map[protocol.Channel]*ramp.Motor, len(motors))}
	for _, c := range motors {
		s.Motors[c] = &ramp.Motor{}
	}
	return s
}

// Stop zeroes every motor at once, closes every jet and centres the servos.
func (s *ActuatorState) Stop(servos ServoTable) {
	for _, m := range s.Motors {
		m.Requested = 0
		m.Applied = 0
	}
	for i := range s.Jets {
		s.Jets[i] = false
	}
	for i := range s.Servos {
		s.Servos[i] = servos.Angle(i, servos.Center)
	}
	s.dirty = true
}

// Tick ramps every motor one step toward its request.
func (s *ActuatorState) Tick(p ramp.Params) {
	for _, m := range s.Motors {
		m.Tick(p)
	}
}

// Snapshot renders the state as a telemetry record, without sensor values.
func (s *ActuatorState) Snapshot() protocol.State {
	st := protocol.State{
		Throttle: make(map[protocol.Channel]float64, len(s.Motors)),
		Servos:   s.Servos,
		Jets:     s.Jets,
	}
	for c, m := range s.Motors {
		st.Throttle[c] = m.Applied
	}
	// X and Z are mandatory on the wire
	for _, c := range []protocol.Channel{protocol.X, protocol.Z} {
		if _, ok := st.Throttle[c]; !ok {
			st.Throttle[c] = 0
		}
	}
	return st
}
