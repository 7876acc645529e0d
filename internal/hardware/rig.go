// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package hardware binds the vehicle's actuator and sensor interfaces to
// periph.io devices, or to a mock rig for bench runs.
package hardware

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/protocol"
	"github.com/relabs-tech/pubmarine/internal/vehicle"
)

// Open builds the vehicle hardware described by cfg for the fitted motors.
// With cfg.Mock set it returns a MockRig instead of touching any bus.
func Open(cfg config.Hardware, motors []protocol.Channel, log zerolog.Logger) (vehicle.Hardware, error) {
	if cfg.Mock {
		log.Info().Msg("using mock hardware")
		return NewMockRig(motors).Hardware(), nil
	}

	if _, err := host.Init(); err != nil {
		return vehicle.Hardware{}, fmt.Errorf("periph host init: %w", err)
	}

	hw := vehicle.Hardware{Motors: make(map[protocol.Channel]vehicle.Motor, len(motors))}
	freq := physic.Frequency(cfg.MotorPWMHz) * physic.Hertz

	for _, c := range motors {
		pins, ok := cfg.MotorPins[strings.ToLower(c.String())]
		if !ok {
			log.Warn().Stringer("channel", c).Msg("no pins configured for motor, leaving it unpowered")
			continue
		}
		fwd, err := pin(pins[0])
		if err != nil {
			return vehicle.Hardware{}, fmt.Errorf("motor %s: %w", c, err)
		}
		rev, err := pin(pins[1])
		if err != nil {
			return vehicle.Hardware{}, fmt.Errorf("motor %s: %w", c, err)
		}
		hw.Motors[c] = NewHBridgeMotor(c.String(), fwd, rev, freq)
	}

	for _, c := range protocol.Channels(protocol.KindServo) {
		name, ok := cfg.ServoPins[strings.ToLower(c.String())]
		if !ok {
			continue
		}
		p, err := pin(name)
		if err != nil {
			return vehicle.Hardware{}, fmt.Errorf("servo %s: %w", c, err)
		}
		hw.Servos[c.ServoIndex()] = NewPWMServo(c.String(), p)
	}

	for _, c := range protocol.Channels(protocol.KindJet) {
		name, ok := cfg.JetPins[strings.ToLower(c.String())]
		if !ok {
			continue
		}
		p, err := pin(name)
		if err != nil {
			return vehicle.Hardware{}, fmt.Errorf("jet %s: %w", c, err)
		}
		hw.Jets[c.JetIndex()] = NewGPIOJet(c.String(), p)
	}

	sensors, err := openSensors(cfg, log)
	if err != nil {
		return vehicle.Hardware{}, err
	}
	hw.Sensors = sensors

	log.Info().
		Int("motors", len(hw.Motors)).
		Str("depth_sensor", cfg.DepthSensor).
		Msg("hardware initialized")
	return hw, nil
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %q not found", name)
	}
	return p, nil
}

type valueReader interface {
	Value() (float64, error)
}

// Sensors samples the IMU, the battery and the depth sender together.
type Sensors struct {
	imu     *IMU
	battery valueReader
	depth   valueReader
}

func openSensors(cfg config.Hardware, log zerolog.Logger) (*Sensors, error) {
	imu, err := OpenIMU(cfg.IMUSPIDevice, cfg.IMUCSPin)
	if err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(cfg.ADCI2CBus)
	if err != nil {
		return nil, fmt.Errorf("ADC I2C open (%q): %w", cfg.ADCI2CBus, err)
	}
	battery, analogDepth, err := OpenAnalogInputs(bus, cfg.ADCI2CAddr,
		cfg.BatteryChannel, cfg.DepthChannel, cfg.BatteryDivider, cfg.DepthFullScale)
	if err != nil {
		return nil, err
	}

	s := &Sensors{imu: imu, battery: battery, depth: analogDepth}
	if cfg.DepthSensor == "bmp" {
		pd, err := OpenPressureDepth(cfg.BMPSPIDevice, cfg.SurfacePressurePa)
		if err != nil {
			return nil, err
		}
		s.depth = pd
		log.Info().Str("device", cfg.BMPSPIDevice).Msg("depth from pressure sensor")
	}
	return s, nil
}

func (s *Sensors) Read() (vehicle.Reading, error) {
	var r vehicle.Reading
	var err error
	if r.Acc, r.Gyro, err = s.imu.Read(); err != nil {
		return r, err
	}
	if r.Battery, err = s.battery.Value(); err != nil {
		return r, err
	}
	if r.Depth, err = s.depth.Value(); err != nil {
		return r, err
	}
	return r, nil
}
