package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/pubmarine/internal/bridge"
	"github.com/relabs-tech/pubmarine/internal/gps"
	"github.com/relabs-tech/pubmarine/internal/hub"
	"github.com/relabs-tech/pubmarine/internal/orientation"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// latest keeps the newest vehicle state, attitude, fault and surface fix
// for the HTTP API.
type latest struct {
	mu       sync.RWMutex
	state    protocol.State
	hasState bool
	attitude orientation.Filter
	fault    string
	fix      gps.Fix
	hasFix   bool
}

func (l *latest) record(cmd protocol.Command) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch c := cmd.(type) {
	case protocol.State:
		l.state, l.hasState = c, true
		if l.attitude.Alpha == 0 {
			l.attitude.Alpha = attitudeAlpha
		}
		l.attitude.Update(c.Acc, c.Gyro, time.Now())
	case protocol.Fault:
		l.fault = c.Reason
	}
}

// Attitude is the filtered roll and pitch from the telemetry so far.
func (l *latest) Attitude() orientation.Pose {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.attitude.Pose()
}

func (l *latest) recordFix(f gps.Fix) {
	l.mu.Lock()
	l.fix, l.hasFix = f, true
	l.mu.Unlock()
}

func (l *latest) State() (protocol.State, string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.fault, l.hasState
}

func (l *latest) Fix() (gps.Fix, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fix, l.hasFix
}

// gyro weight of the host attitude filter
const attitudeAlpha = 0.5

var errNotOutbound = errors.New("only MOT, RESET, BOOT and STOP can be sent to the vehicle")

// commander serializes writes to the link. Viewers, the API and MQTT all
// send through it.
type commander struct {
	mu   sync.Mutex
	link bridge.Link
}

func (c *commander) Send(cmd protocol.Command) error {
	switch cmd.(type) {
	case protocol.Motion, protocol.Reset, protocol.Boot, protocol.Stop:
	default:
		return errNotOutbound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link.Write(cmd)
}

// SendLine decodes a raw protocol line and sends it.
func (c *commander) SendLine(line string) error {
	cmd, err := protocol.Decode(strings.TrimSpace(line))
	if err != nil {
		return err
	}
	return c.Send(cmd)
}

// HandleRequest acts on a viewer or API request.
func (c *commander) HandleRequest(_ string, req hub.Request) error {
	switch req.Action {
	case "send":
		return c.SendLine(req.Line)
	case "stop":
		return c.Send(protocol.Stop{})
	case "reset":
		return c.Send(protocol.Reset{})
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
}
