package vehicle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// Per-token rejection causes. Match them with errors.Is.
var (
	ErrNumberFormat = errors.New("number format")
	ErrOutOfRange   = errors.New("out of range")
)

// ChannelError rejects a single channel=value token of a MOT line.
type ChannelError struct {
	Kind    error // ErrNumberFormat or ErrOutOfRange
	Channel protocol.Channel
	Value   string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s %s=%s", e.Kind, e.Channel, e.Value)
}

func (e *ChannelError) Unwrap() error { return e.Kind }

// ApplyMotion applies the channel=value tokens of a MOT line. Each token is
// checked on its own: a rejected token is reported and the rest still apply.
// Tokens naming unknown or unfitted channels are ignored.
func (s *ActuatorState) ApplyMotion(args []string, servos ServoTable) []error {
	var errs []error
	for _, tok := range args {
		key, raw, _ := strings.Cut(tok, "=")
		c, ok := protocol.ParseChannel(key)
		if !ok {
			continue
		}
		if err := s.applyToken(c, raw, servos); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *ActuatorState) applyToken(c protocol.Channel, raw string, servos ServoTable) error {
	switch c.Kind() {
	case protocol.KindMotor:
		m, fitted := s.Motors[c]
		if !fitted {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &ChannelError{Kind: ErrNumberFormat, Channel: c, Value: raw}
		}
		if !(v >= -1 && v <= 1) {
			return &ChannelError{Kind: ErrOutOfRange, Channel: c, Value: raw}
		}
		m.Requested = v

	case protocol.KindJet:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return &ChannelError{Kind: ErrNumberFormat, Channel: c, Value: raw}
		}
		if v != 0 && v != 1 {
			return &ChannelError{Kind: ErrOutOfRange, Channel: c, Value: raw}
		}
		s.Jets[c.JetIndex()] = v == 1
		s.dirty = true

	case protocol.KindServo:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return &ChannelError{Kind: ErrNumberFormat, Channel: c, Value: raw}
		}
		if v < 0 || v > 180 {
			return &ChannelError{Kind: ErrOutOfRange, Channel: c, Value: raw}
		}
		i := c.ServoIndex()
		s.Servos[i] = servos.Angle(i, v)
		s.dirty = true
	}
	return nil
}
