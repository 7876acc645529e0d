package vehicle

import "github.com/relabs-tech/pubmarine/internal/protocol"

// Motor drives one thruster. Throttle is in [-1, 1].
type Motor interface {
	SetThrottle(v float64) error
}

// Servo positions one servo in degrees, 0..180.
type Servo interface {
	SetAngle(deg int) error
}

// Jet opens or closes one binary valve.
type Jet interface {
	Set(open bool) error
}

// Reading is one snapshot of the on-board sensors in engineering units.
type Reading struct {
	Acc     protocol.Vec3 // m/s²
	Gyro    protocol.Vec3 // rad/s
	Depth   float64       // metres, or fraction of full scale for an analog sender
	Battery float64       // volts
}

// Sensors samples every on-board sensor at once.
type Sensors interface {
	Read() (Reading, error)
}

// Hardware bundles the actuator and sensor handles the loop drives.
// Nil entries are skipped, so a partially fitted vehicle still runs.
type Hardware struct {
	Motors  map[protocol.Channel]Motor
	Servos  [protocol.NumServos]Servo
	Jets    [protocol.NumJets]Jet
	Sensors Sensors
}
