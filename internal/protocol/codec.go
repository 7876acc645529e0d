// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode renders a command as one protocol line without the terminator:
//
//	NAME [FLAG]* [KEY=VALUE]*
//
// Fields are emitted in declaration order.
func Encode(c Command) string {
	w := &lineWriter{}
	w.b.WriteString(c.Name())
	c.encode(w)
	return w.b.String()
}

// Decode parses one protocol line. A line that fails any type or shape
// check is rejected as a whole.
func Decode(text string) (Command, error) {
	l := tokenize(text)
	decode, ok := decoders[l.name]
	if !ok {
		return nil, unknownCommand(l.name)
	}
	return decode(l)
}

// Tokens splits a raw line into its command name and remaining tokens.
func Tokens(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

var decoders = map[string]func(*line) (Command, error){
	NameMotion: decodeMotion,
	NameReset:  decodeReset,
	NameBoot:   func(*line) (Command, error) { return Boot{}, nil },
	NameStop:   func(*line) (Command, error) { return Stop{}, nil },
	NameState:  decodeState,
	NameFault:  decodeFault,
}

type pair struct {
	key, value string
}

type line struct {
	name  string
	flags []string
	pairs []pair // keys upper-cased, in arrival order
	rest  string // raw text after the name
}

func tokenize(text string) *line {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return &line{}
	}
	name := fields[0]
	rest := strings.TrimSpace(text)[len(name):]
	l := &line{name: name, rest: strings.TrimSpace(rest)}
	for _, tok := range fields[1:] {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			l.flags = append(l.flags, tok)
			continue
		}
		l.pairs = append(l.pairs, pair{key: strings.ToUpper(key), value: value})
	}
	return l
}

// get returns the last value stored for key.
func (l *line) get(key string) (string, bool) {
	for i := len(l.pairs) - 1; i >= 0; i-- {
		if l.pairs[i].key == key {
			return l.pairs[i].value, true
		}
	}
	return "", false
}

type lineWriter struct {
	b strings.Builder
}

func (w *lineWriter) flag(f string) {
	w.b.WriteByte(' ')
	w.b.WriteString(f)
}

func (w *lineWriter) pair(key, value string) {
	w.b.WriteByte(' ')
	w.b.WriteString(key)
	w.b.WriteByte('=')
	w.b.WriteString(value)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func formatVec3(v Vec3) string {
	return formatFloat(v[0]) + "," + formatFloat(v[1]) + "," + formatFloat(v[2])
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, typeMismatch(key+"="+value, err)
	}
	return f, nil
}

func parseInt(key, value string) (int, error) {
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, typeMismatch(key+"="+value, err)
	}
	return i, nil
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, typeMismatch(key+"="+value, fmt.Errorf("want 0 or 1"))
}

func parseVec3(key, value string) (Vec3, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return Vec3{}, typeMismatch(key+"="+value, fmt.Errorf("want 3 components, got %d", len(parts)))
	}
	var v Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Vec3{}, typeMismatch(key+"="+value, err)
		}
		v[i] = f
	}
	return v, nil
}

// ---- MOT ----

func (m Motion) encode(w *lineWriter) {
	for c := Channel(0); c < numChannels; c++ {
		switch c.Kind() {
		case KindMotor:
			if v, ok := m.Throttle[c]; ok {
				w.pair(c.String(), formatFloat(v))
			}
		case KindJet:
			if v, ok := m.Jets[c]; ok {
				w.pair(c.String(), formatBool(v))
			}
		case KindServo:
			if v, ok := m.Servos[c]; ok {
				w.pair(c.String(), strconv.Itoa(v))
			}
		}
	}
}

// decodeMotion ignores keys that are not channels.
func decodeMotion(l *line) (Command, error) {
	var m Motion
	for _, p := range l.pairs {
		c, ok := ParseChannel(p.key)
		if !ok {
			continue
		}
		switch c.Kind() {
		case KindMotor:
			v, err := parseFloat(p.key, p.value)
			if err != nil {
				return nil, err
			}
			if m.Throttle == nil {
				m.Throttle = make(map[Channel]float64)
			}
			m.Throttle[c] = v
		case KindJet:
			v, err := parseBool(p.key, p.value)
			if err != nil {
				return nil, err
			}
			if m.Jets == nil {
				m.Jets = make(map[Channel]bool)
			}
			m.Jets[c] = v
		case KindServo:
			v, err := parseInt(p.key, p.value)
			if err != nil {
				return nil, err
			}
			if m.Servos == nil {
				m.Servos = make(map[Channel]int)
			}
			m.Servos[c] = v
		}
	}
	return m, nil
}

// ---- RESET ----

func (r Reset) encode(w *lineWriter) {
	if r.Flag != ResetNormal {
		w.flag(string(r.Flag))
	}
}

func decodeReset(l *line) (Command, error) {
	switch len(l.flags) {
	case 0:
		return Reset{}, nil
	case 1:
		switch f := ResetFlag(strings.ToUpper(l.flags[0])); f {
		case ResetSoft, ResetSafe:
			return Reset{Flag: f}, nil
		}
	}
	return nil, typeMismatch(strings.Join(l.flags, " "), fmt.Errorf("want SOFT or SAFE"))
}

func (Boot) encode(*lineWriter) {}
func (Stop) encode(*lineWriter) {}

// ---- STAT ----

func (s State) encode(w *lineWriter) {
	for _, c := range Channels(KindMotor) {
		v, ok := s.Throttle[c]
		if !ok && c != X && c != Z {
			continue
		}
		// X and Z are mandatory; absent means stopped
		w.pair(c.String(), formatFloat(v))
	}
	for i, c := range Channels(KindServo) {
		w.pair(c.String(), strconv.Itoa(s.Servos[i]))
	}
	for i, c := range Channels(KindJet) {
		w.pair(c.String(), formatBool(s.Jets[i]))
	}
	w.pair("ACC", formatVec3(s.Acc))
	w.pair("GYRO", formatVec3(s.Gyro))
	w.pair("DEPTH", formatFloat(s.Depth))
	w.pair("BAT", formatFloat(s.Bat))
}

func decodeState(l *line) (Command, error) {
	s := State{Throttle: make(map[Channel]float64)}
	for _, c := range Channels(KindMotor) {
		raw, ok := l.get(c.String())
		if !ok {
			if c == X || c == Z {
				return nil, missingField(c.String())
			}
			continue
		}
		v, err := parseFloat(c.String(), raw)
		if err != nil {
			return nil, err
		}
		s.Throttle[c] = v
	}
	for i, c := range Channels(KindServo) {
		raw, ok := l.get(c.String())
		if !ok {
			return nil, missingField(c.String())
		}
		v, err := parseInt(c.String(), raw)
		if err != nil {
			return nil, err
		}
		s.Servos[i] = v
	}
	for i, c := range Channels(KindJet) {
		raw, ok := l.get(c.String())
		if !ok {
			return nil, missingField(c.String())
		}
		v, err := parseBool(c.String(), raw)
		if err != nil {
			return nil, err
		}
		s.Jets[i] = v
	}
	for _, f := range []struct {
		key string
		dst *Vec3
	}{{"ACC", &s.Acc}, {"GYRO", &s.Gyro}} {
		raw, ok := l.get(f.key)
		if !ok {
			return nil, missingField(f.key)
		}
		v, err := parseVec3(f.key, raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	for _, f := range []struct {
		key string
		dst *float64
	}{{"DEPTH", &s.Depth}, {"BAT", &s.Bat}} {
		raw, ok := l.get(f.key)
		if !ok {
			return nil, missingField(f.key)
		}
		v, err := parseFloat(f.key, raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return s, nil
}

// ---- ERR ----

func (f Fault) encode(w *lineWriter) {
	if f.Reason != "" {
		w.flag(f.Reason)
	}
}

func decodeFault(l *line) (Command, error) {
	return Fault{Reason: l.rest}, nil
}
