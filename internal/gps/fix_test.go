package gps

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const rmc = "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"

func TestParseFix(t *testing.T) {
	fix, ok := ParseFix(rmc + "\r\n")
	if !ok {
		t.Fatal("RMC sentence not parsed")
	}
	if !fix.Valid || math.Abs(fix.Latitude-51.5636667) > 1e-6 || math.Abs(fix.Longitude+0.704) > 1e-6 {
		t.Fatalf("fix = %+v", fix)
	}
	if fix.SpeedKnots != 173.8 || fix.CourseDeg != 231.8 {
		t.Fatalf("fix = %+v", fix)
	}

	for _, line := range []string{"", "garbage", "$GPRMC,broken*00", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"} {
		if _, ok := ParseFix(line); ok {
			t.Errorf("ParseFix(%q) returned a fix", line)
		}
	}
}

func TestScan(t *testing.T) {
	input := "noise\n" + rmc + "\n$GPGGA,bad\n" + rmc
	var fixes []Fix
	err := Scan(strings.NewReader(input), zerolog.Nop(), func(f Fix) { fixes = append(fixes, f) })
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Scan = %v", err)
	}
	if len(fixes) != 2 {
		t.Fatalf("got %d fixes, want 2", len(fixes))
	}
}
