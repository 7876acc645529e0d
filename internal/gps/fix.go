// Package gps reads position fixes from the surface station's GNSS receiver.
package gps

import (
	"bufio"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"
)

// Fix is one surface position, suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"` // e.g. "12:34:56"
	Date       string  `json:"date"`
	Latitude   float64 `json:"lat"` // decimal degrees
	Longitude  float64 `json:"lon"`
	SpeedKnots float64 `json:"speed_knots"`
	CourseDeg  float64 `json:"course_deg"`
	Valid      bool    `json:"valid"`
}

// ParseFix parses one NMEA sentence. Only RMC sentences yield a fix.
func ParseFix(line string) (Fix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}
	sentence, err := nmea.Parse(line)
	if err != nil || sentence.DataType() != nmea.TypeRMC {
		return Fix{}, false
	}
	m := sentence.(nmea.RMC)
	return Fix{
		Time:       m.Time.String(),
		Date:       m.Date.String(),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Valid:      string(m.Validity) == "A",
	}, true
}

// Scan reads sentences from r until it fails and calls fn for every fix.
// Noise and other sentence types are skipped.
func Scan(r io.Reader, log zerolog.Logger, fn func(Fix)) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if fix, ok := ParseFix(line); ok {
				fn(fix)
			} else {
				log.Trace().Str("line", strings.TrimSpace(line)).Msg("skipped NMEA line")
			}
		}
		if err != nil {
			return err
		}
	}
}
