// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"fmt"
	"strings"
)

// Kind groups channels by the value type they carry.
type Kind uint8

const (
	KindMotor Kind = iota + 1 // throttle in [-1, 1]
	KindJet                   // binary valve, 0 or 1
	KindServo                 // angle in degrees, 0..180
)

func (k Kind) String() string {
	switch k {
	case KindMotor:
		return "motor"
	case KindJet:
		return "jet"
	case KindServo:
		return "servo"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Channel is one named actuator slot on the wire (X, FU, SV1, ...).
// The declaration order is the order fields are emitted on encode.
type Channel uint8

const (
	X Channel = iota
	Y
	Z
	W
	FU
	FD
	FL
	FR
	RU
	RD
	RL
	RR
	SV1
	SV2
	SV3
	SV4

	numChannels
)

const (
	NumJets   = int(RR-FU) + 1
	NumServos = int(SV4-SV1) + 1
)

var channelTable = [numChannels]struct {
	token string
	kind  Kind
}{
	X:   {"X", KindMotor},
	Y:   {"Y", KindMotor},
	Z:   {"Z", KindMotor},
	W:   {"W", KindMotor},
	FU:  {"FU", KindJet},
	FD:  {"FD", KindJet},
	FL:  {"FL", KindJet},
	FR:  {"FR", KindJet},
	RU:  {"RU", KindJet},
	RD:  {"RD", KindJet},
	RL:  {"RL", KindJet},
	RR:  {"RR", KindJet},
	SV1: {"SV1", KindServo},
	SV2: {"SV2", KindServo},
	SV3: {"SV3", KindServo},
	SV4: {"SV4", KindServo},
}

func (c Channel) String() string {
	if c >= numChannels {
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
	return channelTable[c].token
}

func (c Channel) Kind() Kind {
	if c >= numChannels {
		return 0
	}
	return channelTable[c].kind
}

// JetIndex returns the position of a jet channel in State.Jets.
func (c Channel) JetIndex() int { return int(c - FU) }

// ServoIndex returns the position of a servo channel in State.Servos.
func (c Channel) ServoIndex() int { return int(c - SV1) }

// ParseChannel resolves a wire token to a channel, ignoring case.
func ParseChannel(token string) (Channel, bool) {
	token = strings.ToUpper(token)
	for c := Channel(0); c < numChannels; c++ {
		if channelTable[c].token == token {
			return c, true
		}
	}
	return 0, false
}

// Channels lists every channel of the given kind in declaration order.
func Channels(kind Kind) []Channel {
	var out []Channel
	for c := Channel(0); c < numChannels; c++ {
		if channelTable[c].kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (c Channel) MarshalText() ([]byte, error) {
	if c >= numChannels {
		return nil, fmt.Errorf("invalid channel %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Channel) UnmarshalText(b []byte) error {
	ch, ok := ParseChannel(string(b))
	if !ok {
		return fmt.Errorf("unknown channel %q", string(b))
	}
	*c = ch
	return nil
}
