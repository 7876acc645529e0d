package app

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/protocol"
	"github.com/relabs-tech/pubmarine/internal/ramp"
	"github.com/relabs-tech/pubmarine/internal/vehicle"
)

// loopOptions translates configuration into control loop options.
func loopOptions(cfg *config.Config) (vehicle.Options, error) {
	motors, err := motorChannels(cfg.Vehicle.Motors)
	if err != nil {
		return vehicle.Options{}, err
	}
	return vehicle.Options{
		Tick:        cfg.Vehicle.Tick(),
		Ramp:        ramp.Params(cfg.Ramp),
		Servos:      servoTable(cfg.Servo),
		Motors:      motors,
		Interactive: cfg.Vehicle.Interactive,
	}, nil
}

func motorChannels(names []string) ([]protocol.Channel, error) {
	var out []protocol.Channel
	seen := make(map[protocol.Channel]bool)
	for _, n := range names {
		c, ok := protocol.ParseChannel(n)
		if !ok || c.Kind() != protocol.KindMotor {
			return nil, fmt.Errorf("not a motor channel: %q", n)
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func servoTable(s config.Servo) vehicle.ServoTable {
	t := vehicle.ServoTable{Center: s.Center}
	for _, c := range protocol.Channels(protocol.KindServo) {
		t.Offsets[c.ServoIndex()] = s.Offsets[strings.ToLower(c.String())]
	}
	return t
}
