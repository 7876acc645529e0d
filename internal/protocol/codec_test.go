package protocol

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func sampleState() State {
	return State{
		Throttle: map[Channel]float64{X: 0.5, Z: -0.25},
		Servos:   [NumServos]int{90, 95, 10, 170},
		Jets:     [NumJets]bool{true, false, false, true, false, false, false, true},
		Acc:      Vec3{0.1, -9.81, 0.3},
		Gyro:     Vec3{0, 0.01, -0.02},
		Depth:    0.42,
		Bat:      12.6,
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []Command{
		Motion{},
		Motion{
			Throttle: map[Channel]float64{X: 1.0, Z: -0.5, Y: 0.333},
			Jets:     map[Channel]bool{FU: true, RD: false},
			Servos:   map[Channel]int{SV1: 90, SV4: 0},
		},
		Motion{Throttle: map[Channel]float64{W: -1}},
		Reset{},
		Reset{Flag: ResetSoft},
		Reset{Flag: ResetSafe},
		Boot{},
		Stop{},
		sampleState(),
		func() State {
			s := sampleState()
			s.Throttle[Y] = 0.2
			s.Throttle[W] = -0.7
			return s
		}(),
		State{},
		State{Throttle: map[Channel]float64{Y: 0.4}},
		Fault{Reason: "Number format Y=bogus"},
	}

	for _, want := range cases {
		text := Encode(want)
		got, err := Decode(text)
		if err != nil {
			t.Fatalf("Decode(%q): %v", text, err)
		}
		if !equalCommand(got, want) {
			t.Fatalf("round trip of %q: got %#v, want %#v", text, got, want)
		}
	}
}

func TestEncodeZeroState(t *testing.T) {
	text := Encode(State{})
	want := "STAT X=0 Z=0 SV1=0 SV2=0 SV3=0 SV4=0 FU=0 FD=0 FL=0 FR=0 RU=0 RD=0 RL=0 RR=0 ACC=0,0,0 GYRO=0,0,0 DEPTH=0 BAT=0"
	if text != want {
		t.Fatalf("Encode(State{}) = %q\nwant %q", text, want)
	}
	got, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if st := got.(State); len(st.Throttle) != 2 || st.Throttle[X] != 0 || st.Throttle[Z] != 0 {
		t.Fatalf("throttle = %v", st.Throttle)
	}
}

func TestEncodeOrder(t *testing.T) {
	cases := []struct {
		cmd  Command
		want string
	}{
		{Reset{Flag: ResetSafe}, "RESET SAFE"},
		{Stop{}, "STOP"},
		{
			Motion{
				Servos:   map[Channel]int{SV1: 90},
				Jets:     map[Channel]bool{FU: true},
				Throttle: map[Channel]float64{Z: -0.5, X: 1},
			},
			"MOT X=1 Z=-0.5 FU=1 SV1=90",
		},
		{
			sampleState(),
			"STAT X=0.5 Z=-0.25 SV1=90 SV2=95 SV3=10 SV4=170 FU=1 FD=0 FL=0 FR=1 RU=0 RD=0 RL=0 RR=1 " +
				"ACC=0.1,-9.81,0.3 GYRO=0,0.01,-0.02 DEPTH=0.42 BAT=12.6",
		},
	}
	for _, tc := range cases {
		if got := Encode(tc.cmd); got != tc.want {
			t.Errorf("Encode(%#v) = %q, want %q", tc.cmd, got, tc.want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		line string
		kind error
	}{
		{"", ErrUnknownCommand},
		{"CAL", ErrUnknownCommand},
		{"mot X=1", ErrUnknownCommand},
		{"MOT X=fast", ErrTypeMismatch},
		{"MOT SV1=90.5", ErrTypeMismatch},
		{"MOT FU=2", ErrTypeMismatch},
		{"RESET HARD", ErrTypeMismatch},
		{"RESET SOFT SAFE", ErrTypeMismatch},
		{"STAT Z=0", ErrMissingField},
		{Encode(sampleState())[:len(Encode(sampleState()))-len(" BAT=12.6")], ErrMissingField},
		{"STAT X=0 Z=0 SV1=1 SV2=1 SV3=1 SV4=1 FU=0 FD=0 FL=0 FR=0 RU=0 RD=0 RL=0 RR=0 ACC=1,2 GYRO=0,0,0 DEPTH=0 BAT=0", ErrTypeMismatch},
	}
	for _, tc := range cases {
		_, err := Decode(tc.line)
		if !errors.Is(err, tc.kind) {
			t.Errorf("Decode(%q) error = %v, want %v", tc.line, err, tc.kind)
		}
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			t.Errorf("Decode(%q) error %T is not a *ProtocolError", tc.line, err)
		}
	}
}

func TestDecodeLenient(t *testing.T) {
	cmd, err := Decode("  MOT x=0.5 sv2=45 speed=9 fd=true \r")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := cmd.(Motion)
	if m.Throttle[X] != 0.5 || m.Servos[SV2] != 45 || !m.Jets[FD] {
		t.Fatalf("unexpected motion %#v", m)
	}

	cmd, err = Decode("ERR Unknown command")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f := cmd.(Fault); f.Reason != "Unknown command" {
		t.Fatalf("fault reason = %q", f.Reason)
	}
}

func TestTokens(t *testing.T) {
	name, args := Tokens("MOT  X=1\tZ=0.5 ")
	if name != "MOT" || len(args) != 2 || args[0] != "X=1" || args[1] != "Z=0.5" {
		t.Fatalf("Tokens = %q %q", name, args)
	}
	if name, args := Tokens("   "); name != "" || args != nil {
		t.Fatalf("Tokens of blank line = %q %q", name, args)
	}
}

func TestParseChannel(t *testing.T) {
	for _, kind := range []Kind{KindMotor, KindJet, KindServo} {
		for _, c := range Channels(kind) {
			got, ok := ParseChannel(c.String())
			if !ok || got != c {
				t.Fatalf("ParseChannel(%q) = %v, %v", c.String(), got, ok)
			}
		}
	}
	if _, ok := ParseChannel("Q"); ok {
		t.Fatal("ParseChannel accepted Q")
	}
	if len(Channels(KindJet)) != NumJets || len(Channels(KindServo)) != NumServos {
		t.Fatal("channel table out of sync with array sizes")
	}
}

func TestMarshalEnvelope(t *testing.T) {
	b, err := MarshalEnvelope(sampleState())
	if err != nil {
		t.Fatalf("MarshalEnvelope: %v", err)
	}
	var out struct {
		Type    string `json:"type"`
		Command struct {
			Throttle map[string]float64 `json:"throttle"`
			Bat      float64            `json:"bat"`
		} `json:"command"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Type != NameState || out.Command.Throttle["X"] != 0.5 || out.Command.Bat != 12.6 {
		t.Fatalf("unexpected envelope %s", b)
	}
}

func equalCommand(a, b Command) bool {
	switch x := a.(type) {
	case Motion:
		y, ok := b.(Motion)
		return ok && equalFloats(x.Throttle, y.Throttle) && equalMap(x.Jets, y.Jets) && equalMap(x.Servos, y.Servos)
	case State:
		y, ok := b.(State)
		return ok && equalFloats(wireThrottle(x.Throttle), wireThrottle(y.Throttle)) &&
			x.Servos == y.Servos && x.Jets == y.Jets &&
			near(x.Depth, y.Depth) && near(x.Bat, y.Bat) &&
			equalVec(x.Acc, y.Acc) && equalVec(x.Gyro, y.Gyro)
	default:
		return a == b
	}
}

// wireThrottle fills in the X and Z that State always carries on the wire.
func wireThrottle(m map[Channel]float64) map[Channel]float64 {
	out := map[Channel]float64{X: 0, Z: 0}
	for c, v := range m {
		out[c] = v
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func equalVec(a, b Vec3) bool {
	return near(a[0], b[0]) && near(a[1], b[1]) && near(a[2], b[2])
}

func equalFloats(a, b map[Channel]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !near(v, w) {
			return false
		}
	}
	return true
}

func equalMap[V comparable](a, b map[Channel]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
