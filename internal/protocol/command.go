// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

// Wire names of the command variants.
const (
	NameMotion = "MOT"
	NameReset  = "RESET"
	NameBoot   = "BOOT"
	NameStop   = "STOP"
	NameState  = "STAT"
	NameFault  = "ERR"
)

// Command is the closed set of messages exchanged over the serial link.
// Only the variants declared in this package implement it.
type Command interface {
	Name() string
	encode(w *lineWriter)
}

// Motion requests new actuator values. Channels absent from the maps
// are left unchanged.
type Motion struct {
	Throttle map[Channel]float64 `json:"throttle,omitempty"`
	Jets     map[Channel]bool    `json:"jets,omitempty"`
	Servos   map[Channel]int     `json:"servos,omitempty"`
}

// ResetFlag selects how the vehicle restarts.
type ResetFlag string

const (
	ResetNormal ResetFlag = ""
	ResetSoft   ResetFlag = "SOFT" // reload the control loop only
	ResetSafe   ResetFlag = "SAFE" // reboot into safe mode
)

type Reset struct {
	Flag ResetFlag `json:"flag,omitempty"`
}

// Boot reboots the vehicle into firmware-update mode.
type Boot struct{}

// Stop zeroes every actuator.
type Stop struct{}

// Vec3 is an (x, y, z) sensor reading, encoded on the wire as "x,y,z".
type Vec3 [3]float64

// State is the vehicle telemetry line. It never travels host to vehicle.
// Throttle always carries X and Z; Y and W appear when the vehicle has them.
type State struct {
	Throttle map[Channel]float64 `json:"throttle"`
	Servos   [NumServos]int      `json:"servos"`
	Jets     [NumJets]bool       `json:"jets"`
	Acc      Vec3                `json:"acc"`   // m/s²
	Gyro     Vec3                `json:"gyro"`  // rad/s
	Depth    float64             `json:"depth"` // fraction of sensor full scale
	Bat      float64             `json:"bat"`   // volts
}

// Fault carries an "ERR <reason>" line from the vehicle.
type Fault struct {
	Reason string `json:"reason"`
}

func (Motion) Name() string { return NameMotion }
func (Reset) Name() string  { return NameReset }
func (Boot) Name() string   { return NameBoot }
func (Stop) Name() string   { return NameStop }
func (State) Name() string  { return NameState }
func (Fault) Name() string  { return NameFault }
