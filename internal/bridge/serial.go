package bridge

import (
	"errors"
	"fmt"
	"io"
	"strings"

	jacobsa "github.com/jacobsa/go-serial/serial"
	"go.bug.st/serial"
)

// ErrNoPort is returned by DiscoverPort when no candidate device exists.
var ErrNoPort = errors.New("no serial port found")

// SerialOpener opens name at baud, 8N1, blocking until at least one byte is
// available on read.
func SerialOpener(name string, baud int) Opener {
	opts := jacobsa.OpenOptions{
		PortName:              name,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            jacobsa.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	return func() (io.ReadWriteCloser, error) {
		port, err := jacobsa.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return port, nil
	}
}

// DiscoverPort returns the first USB or ACM serial device, the usual names
// for a vehicle tethered over a USB serial adapter.
func DiscoverPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	if p, ok := pickPort(ports); ok {
		return p, nil
	}
	return "", ErrNoPort
}

func pickPort(ports []string) (string, bool) {
	for _, prefix := range []string{"/dev/ttyUSB", "/dev/ttyACM", "/dev/cu.usbserial", "/dev/cu.usbmodem", "COM"} {
		for _, p := range ports {
			if strings.HasPrefix(p, prefix) {
				return p, true
			}
		}
	}
	return "", false
}

// ResolvePort expands "auto" through DiscoverPort.
func ResolvePort(name string) (string, error) {
	if name != "auto" {
		return name, nil
	}
	return DiscoverPort()
}
