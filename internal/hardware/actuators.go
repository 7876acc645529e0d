// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hardware

import (
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Servo timing: a 50 Hz frame with a 0.5 ms to 2.5 ms pulse across 0..180°.
const (
	ServoFrequency = 50 * physic.Hertz
	servoPeriod    = 20 * time.Millisecond
	servoMinPulse  = 500 * time.Microsecond
	servoMaxPulse  = 2500 * time.Microsecond
)

// duty converts a fraction in [0, 1] to a PWM duty cycle.
func duty(frac float64) gpio.Duty {
	frac = math.Max(0, math.Min(1, frac))
	return gpio.Duty(math.Round(frac * float64(gpio.DutyMax)))
}

// HBridgeMotor drives a brushed thruster through an H-bridge: one pin is
// pulsed for forward, the other for reverse.
type HBridgeMotor struct {
	name     string
	fwd, rev gpio.PinOut
	freq     physic.Frequency
}

func NewHBridgeMotor(name string, fwd, rev gpio.PinOut, freq physic.Frequency) *HBridgeMotor {
	return &HBridgeMotor{name: name, fwd: fwd, rev: rev, freq: freq}
}

// SetThrottle applies v in [-1, 1]. Zero drives both legs low.
func (m *HBridgeMotor) SetThrottle(v float64) error {
	on, off := m.fwd, m.rev
	if v < 0 {
		on, off = m.rev, m.fwd
	}
	if err := off.Out(gpio.Low); err != nil {
		return fmt.Errorf("motor %s: %w", m.name, err)
	}
	if v == 0 {
		if err := on.Out(gpio.Low); err != nil {
			return fmt.Errorf("motor %s: %w", m.name, err)
		}
		return nil
	}
	if err := on.PWM(duty(math.Abs(v)), m.freq); err != nil {
		return fmt.Errorf("motor %s: %w", m.name, err)
	}
	return nil
}

// PWMServo positions a hobby servo on one PWM pin.
type PWMServo struct {
	name string
	pin  gpio.PinOut
}

func NewPWMServo(name string, pin gpio.PinOut) *PWMServo {
	return &PWMServo{name: name, pin: pin}
}

// ServoDuty is the duty cycle for deg, clamped to 0..180.
func ServoDuty(deg int) gpio.Duty {
	deg = max(0, min(180, deg))
	pulse := servoMinPulse + time.Duration(deg)*(servoMaxPulse-servoMinPulse)/180
	return duty(float64(pulse) / float64(servoPeriod))
}

func (s *PWMServo) SetAngle(deg int) error {
	if err := s.pin.PWM(ServoDuty(deg), ServoFrequency); err != nil {
		return fmt.Errorf("servo %s: %w", s.name, err)
	}
	return nil
}

// GPIOJet switches one solenoid valve.
type GPIOJet struct {
	name string
	pin  gpio.PinOut
}

func NewGPIOJet(name string, pin gpio.PinOut) *GPIOJet {
	return &GPIOJet{name: name, pin: pin}
}

func (j *GPIOJet) Set(open bool) error {
	if err := j.pin.Out(gpio.Level(open)); err != nil {
		return fmt.Errorf("jet %s: %w", j.name, err)
	}
	return nil
}
