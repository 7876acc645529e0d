package ramp

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestStepRules(t *testing.T) {
	p := DefaultParams
	cases := []struct {
		name               string
		requested, applied float64
		want               float64
	}{
		{"unchanged", 0.7, 0.7, 0.7},
		{"below min forces zero", 0.1, 0.9, 0},
		{"below min negative", -0.19, -0.5, 0},
		{"dead zone from rest", 0.25, 0, 0},
		{"dead zone negative", -0.29, 0, 0},
		{"start within window", 0.4, 0, 0.4},
		{"start at min start", 0.3, 0, 0.3},
		{"start at max start", -0.5, 0, -0.5},
		{"start kick clamped", 1.0, 0, 0.5},
		{"start kick clamped negative", -0.9, 0, -0.5},
		{"running small step", 0.6, 0.5, 0.6},
		{"running large step up", 1.0, 0.5, 0.7},
		{"running large step down", -1.0, 0.5, 0.3},
		{"running below min start allowed", 0.25, 0.4, 0.25},
		{"request outside range", 3, 0.9, 1},
	}
	for _, tc := range cases {
		got := p.Step(tc.requested, tc.applied)
		if math.Abs(got-tc.want) > eps {
			t.Errorf("%s: Step(%v, %v) = %v, want %v", tc.name, tc.requested, tc.applied, got, tc.want)
		}
	}
}

func TestStartThenConverge(t *testing.T) {
	p := DefaultParams
	m := Motor{Requested: 1.0}

	if got := m.Tick(p); math.Abs(got-p.MaxStartMag) > eps {
		t.Fatalf("first tick = %v, want %v", got, p.MaxStartMag)
	}
	prev := m.Applied
	for i := 0; i < 10; i++ {
		got := m.Tick(p)
		if got-prev > p.MaxStep+eps {
			t.Fatalf("tick %d moved %v, more than MaxStep", i, got-prev)
		}
		if math.Abs(got) > 1 {
			t.Fatalf("tick %d applied %v out of range", i, got)
		}
		prev = got
	}
	if math.Abs(m.Applied-1.0) > eps {
		t.Fatalf("did not converge: applied %v", m.Applied)
	}
}

func TestBelowMinStopsWithinOneTick(t *testing.T) {
	p := DefaultParams
	for _, applied := range []float64{-1, -0.5, 0, 0.3, 1} {
		for _, req := range []float64{0, 0.19, -0.19, 0.05} {
			m := Motor{Requested: req, Applied: applied}
			if got := m.Tick(p); got != 0 {
				t.Errorf("Tick from %v with request %v = %v, want 0", applied, req, got)
			}
		}
	}
}

func TestServoAngle(t *testing.T) {
	cases := []struct {
		requested, offset, want int
	}{
		{170, 5, 175},
		{-50, 5, 15},
		{90, 0, 90},
		{180, 0, 170},
		{0, 0, 10},
		{170, 20, 180},
		{10, -15, 0},
		{100, -5, 95},
	}
	for _, tc := range cases {
		if got := ServoAngle(tc.requested, tc.offset); got != tc.want {
			t.Errorf("ServoAngle(%d, %d) = %d, want %d", tc.requested, tc.offset, got, tc.want)
		}
	}
}
