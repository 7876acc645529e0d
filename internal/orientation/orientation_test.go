package orientation

import (
	"math"
	"testing"
	"time"

	"github.com/relabs-tech/pubmarine/internal/protocol"
)

const g = 9.80665

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestFromAccel(t *testing.T) {
	cases := []struct {
		name        string
		acc         protocol.Vec3
		roll, pitch float64
	}{
		{"level", protocol.Vec3{0, 0, g}, 0, 0},
		{"rolled right", protocol.Vec3{0, g, 0}, 90, 0},
		{"nose down", protocol.Vec3{-g, 0, 0}, 0, 90},
		{"rolled 45", protocol.Vec3{0, g / math.Sqrt2, g / math.Sqrt2}, 45, 0},
	}
	for _, tc := range cases {
		p := FromAccel(tc.acc)
		if !near(p.Roll, tc.roll) || !near(p.Pitch, tc.pitch) {
			t.Errorf("%s: got %+v, want roll %v pitch %v", tc.name, p, tc.roll, tc.pitch)
		}
	}
}

func TestFilterSeedsFromAccel(t *testing.T) {
	f := NewFilter(0.98)
	p := f.Update(protocol.Vec3{0, g, 0}, protocol.Vec3{}, time.Unix(0, 0))
	if !near(p.Roll, 90) {
		t.Fatalf("first update should take the tilt, got %+v", p)
	}
}

func TestFilterIntegratesGyro(t *testing.T) {
	level := protocol.Vec3{0, 0, g}
	t0 := time.Unix(0, 0)

	f := NewFilter(1)
	f.Update(level, protocol.Vec3{}, t0)
	// 0.5 rad/s for one second with the accelerometer ignored
	p := f.Update(level, protocol.Vec3{0.5, 0, 0}, t0.Add(time.Second))
	if want := 0.5 * 180 / math.Pi; !near(p.Roll, want) {
		t.Errorf("roll = %v, want %v", p.Roll, want)
	}

	f = NewFilter(0.5)
	f.Update(level, protocol.Vec3{}, t0)
	p = f.Update(protocol.Vec3{0, g, 0}, protocol.Vec3{}, t0.Add(time.Second))
	if !near(p.Roll, 45) {
		t.Errorf("blended roll = %v, want 45", p.Roll)
	}

	// stale timestamps reseed instead of integrating backwards
	p = f.Update(level, protocol.Vec3{9, 9, 9}, t0)
	if !near(p.Roll, 0) {
		t.Errorf("reseeded roll = %v", p.Roll)
	}
}
