// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hardware

import (
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/pubmarine/internal/protocol"
	"github.com/relabs-tech/pubmarine/internal/vehicle"
)

// MockRig stands in for the vehicle on a bench. Actuator writes are
// recorded and sensors generate smoothly changing values.
type MockRig struct {
	mu       sync.Mutex
	start    time.Time
	now      func() time.Time
	throttle map[protocol.Channel]float64
	angles   [protocol.NumServos]int
	jets     [protocol.NumJets]bool
	motors   []protocol.Channel
}

func NewMockRig(motors []protocol.Channel) *MockRig {
	return &MockRig{
		start:    time.Now(),
		now:      time.Now,
		throttle: make(map[protocol.Channel]float64, len(motors)),
		motors:   motors,
	}
}

// Hardware returns handles for every fitted motor, all servos, all jets and
// the simulated sensors.
func (m *MockRig) Hardware() vehicle.Hardware {
	hw := vehicle.Hardware{
		Motors:  make(map[protocol.Channel]vehicle.Motor, len(m.motors)),
		Sensors: mockSensors{m},
	}
	for _, c := range m.motors {
		hw.Motors[c] = mockMotor{m, c}
	}
	for i := range hw.Servos {
		hw.Servos[i] = mockServo{m, i}
	}
	for i := range hw.Jets {
		hw.Jets[i] = mockJet{m, i}
	}
	return hw
}

// Throttle is the last value written to motor c.
func (m *MockRig) Throttle(c protocol.Channel) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.throttle[c]
}

// Angle is the last angle written to servo i.
func (m *MockRig) Angle(i int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.angles[i]
}

// Jet reports whether jet i was last opened.
func (m *MockRig) Jet(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jets[i]
}

type mockMotor struct {
	rig *MockRig
	c   protocol.Channel
}

func (mm mockMotor) SetThrottle(v float64) error {
	mm.rig.mu.Lock()
	mm.rig.throttle[mm.c] = v
	mm.rig.mu.Unlock()
	return nil
}

type mockServo struct {
	rig *MockRig
	i   int
}

func (ms mockServo) SetAngle(deg int) error {
	ms.rig.mu.Lock()
	ms.rig.angles[ms.i] = deg
	ms.rig.mu.Unlock()
	return nil
}

type mockJet struct {
	rig *MockRig
	i   int
}

func (mj mockJet) Set(open bool) error {
	mj.rig.mu.Lock()
	mj.rig.jets[mj.i] = open
	mj.rig.mu.Unlock()
	return nil
}

type mockSensors struct{ rig *MockRig }

// Read pitches and rolls the vehicle gently, sinks it slowly with the mean
// vertical thrust and drains the battery over time.
func (s mockSensors) Read() (vehicle.Reading, error) {
	s.rig.mu.Lock()
	defer s.rig.mu.Unlock()

	elapsed := s.rig.now().Sub(s.rig.start).Seconds()
	roll := 0.2 * math.Sin(elapsed)
	pitch := 0.15 * math.Cos(elapsed*0.7)

	return vehicle.Reading{
		Acc: protocol.Vec3{
			-standardG * math.Sin(pitch),
			standardG * math.Sin(roll) * math.Cos(pitch),
			standardG * math.Cos(roll) * math.Cos(pitch),
		},
		Gyro: protocol.Vec3{
			0.2 * math.Cos(elapsed),
			-0.105 * math.Sin(elapsed*0.7),
			0,
		},
		Depth:   math.Max(0, 1.5+math.Sin(elapsed/10)+s.rig.throttle[protocol.Z]),
		Battery: math.Max(10.5, 12.6-elapsed/3600),
	}, nil
}
