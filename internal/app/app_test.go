package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/bridge"
	"github.com/relabs-tech/pubmarine/internal/config"
	"github.com/relabs-tech/pubmarine/internal/gps"
	"github.com/relabs-tech/pubmarine/internal/hub"
	"github.com/relabs-tech/pubmarine/internal/orientation"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

type fakeLink struct {
	mu      sync.Mutex
	written []string
	fail    bool
}

func (l *fakeLink) OnCommand(func(protocol.Command)) {}
func (l *fakeLink) Run(ctx context.Context) error    { <-ctx.Done(); return ctx.Err() }
func (l *fakeLink) Close() error                     { return nil }

func (l *fakeLink) Write(cmd protocol.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return &bridge.TransportError{Kind: bridge.ErrWriteFailed, Err: errors.New("port gone")}
	}
	l.written = append(l.written, protocol.Encode(cmd))
	return nil
}

func (l *fakeLink) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.written...)
}

func init() { gin.SetMode(gin.TestMode) }

func newTestRouter(link *fakeLink) (*gin.Engine, *latest) {
	last := &latest{}
	r := newRouter(hub.New(), &commander{link: link}, last, nil, zerolog.Nop())
	return r, last
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStateEndpoint(t *testing.T) {
	r, last := newTestRouter(&fakeLink{})

	if w := do(r, http.MethodGet, "/api/state", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("before telemetry: got %d", w.Code)
	}

	last.record(protocol.State{
		Throttle: map[protocol.Channel]float64{protocol.X: 0.5, protocol.Z: 0},
		Acc:      protocol.Vec3{0, 9.8, 0},
		Bat:      12.1,
	})
	last.record(protocol.Fault{Reason: "out of range: SV1"})

	w := do(r, http.MethodGet, "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
	var body struct {
		State     protocol.State   `json:"state"`
		Attitude  orientation.Pose `json:"attitude"`
		LastError string           `json:"last_error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.State.Throttle[protocol.X] != 0.5 || body.State.Bat != 12.1 {
		t.Errorf("state = %+v", body.State)
	}
	if math.Abs(body.Attitude.Roll-90) > 1e-9 {
		t.Errorf("attitude = %+v", body.Attitude)
	}
	if body.LastError != "out of range: SV1" {
		t.Errorf("last_error = %q", body.LastError)
	}
}

func TestGPSEndpoint(t *testing.T) {
	r, last := newTestRouter(&fakeLink{})
	if w := do(r, http.MethodGet, "/api/gps", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("before fix: got %d", w.Code)
	}
	last.recordFix(gps.Fix{Latitude: 51.5, Longitude: -0.7, Valid: true})
	w := do(r, http.MethodGet, "/api/gps", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"lat":51.5`) {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
}

func TestCommandEndpoint(t *testing.T) {
	cases := []struct {
		name string
		body string
		fail bool
		code int
		sent string
	}{
		{"motion", `{"action":"send","line":"MOT X=0.5"}`, false, http.StatusAccepted, "MOT X=0.5"},
		{"stop", `{"action":"stop"}`, false, http.StatusAccepted, "STOP"},
		{"reset", `{"action":"reset"}`, false, http.StatusAccepted, "RESET"},
		{"unknown command", `{"action":"send","line":"FLY X=1"}`, false, http.StatusUnprocessableEntity, ""},
		{"telemetry is inbound only", `{"action":"send","line":"STAT X=0 Z=0 SV1=90 SV2=90 SV3=90 SV4=90 FU=0 FD=0 FL=0 FR=0 RU=0 RD=0 RL=0 RR=0 ACC=0,0,0 GYRO=0,0,0 DEPTH=0 BAT=12"}`, false, http.StatusUnprocessableEntity, ""},
		{"unknown action", `{"action":"dive"}`, false, http.StatusBadRequest, ""},
		{"bad json", `{`, false, http.StatusBadRequest, ""},
		{"port down", `{"action":"stop"}`, true, http.StatusBadGateway, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			link := &fakeLink{fail: tc.fail}
			r, _ := newTestRouter(link)
			w := do(r, http.MethodPost, "/api/command", tc.body)
			if w.Code != tc.code {
				t.Fatalf("got %d, want %d: %s", w.Code, tc.code, w.Body)
			}
			got := link.lines()
			if tc.sent == "" {
				if len(got) != 0 {
					t.Errorf("wrote %q", got)
				}
				return
			}
			if len(got) != 1 || got[0] != tc.sent {
				t.Errorf("wrote %q, want %q", got, tc.sent)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(&fakeLink{})
	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
}

func TestCommanderRejectsInbound(t *testing.T) {
	link := &fakeLink{}
	c := &commander{link: link}
	for _, cmd := range []protocol.Command{protocol.State{}, protocol.Fault{Reason: "x"}} {
		if err := c.Send(cmd); !errors.Is(err, errNotOutbound) {
			t.Errorf("Send(%s) = %v", cmd.Name(), err)
		}
	}
	if err := c.SendLine("  BOOT  "); err != nil {
		t.Fatal(err)
	}
	if got := link.lines(); len(got) != 1 || got[0] != "BOOT" {
		t.Errorf("wrote %q", got)
	}
}

func TestLoopOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Vehicle.Motors = []string{"x", "Z", "x"}
	cfg.Servo.Offsets = map[string]int{"sv2": 5, "sv4": -3}

	opts, err := loopOptions(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Motors) != 2 || opts.Motors[0] != protocol.X || opts.Motors[1] != protocol.Z {
		t.Errorf("motors = %v", opts.Motors)
	}
	if opts.Servos.Offsets != [protocol.NumServos]int{0, 5, 0, -3} {
		t.Errorf("offsets = %v", opts.Servos.Offsets)
	}
	if opts.Ramp.MaxStartMag != 0.5 || opts.Tick != cfg.Vehicle.Tick() {
		t.Errorf("opts = %+v", opts)
	}

	cfg.Vehicle.Motors = []string{"sv1"}
	if _, err := loopOptions(cfg); err == nil {
		t.Error("servo accepted as motor")
	}
}

func TestCommandTopic(t *testing.T) {
	if got := commandTopic("pubmarine", protocol.NameState); got != "pubmarine/stat" {
		t.Errorf("got %q", got)
	}
}

func TestMQTTLine(t *testing.T) {
	st := protocol.State{Throttle: map[protocol.Channel]float64{protocol.X: 0.5, protocol.Z: -0.2}, Depth: 1.5, Bat: 12.4}
	payload, err := protocol.MarshalEnvelope(st)
	if err != nil {
		t.Fatal(err)
	}
	line, ok, err := mqttLine("pubmarine", "pubmarine/stat", payload)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !strings.HasPrefix(line, "[STAT] X=+0.50") || !strings.Contains(line, "bat=12.40V") {
		t.Errorf("line = %q", line)
	}

	payload, _ = protocol.MarshalEnvelope(protocol.Fault{Reason: "unknown command: FLY"})
	line, ok, _ = mqttLine("pubmarine", "pubmarine/err", payload)
	if !ok || line != "[ERR ] unknown command: FLY" {
		t.Errorf("line = %q", line)
	}

	if _, ok, _ := mqttLine("pubmarine", "pubmarine/cmd", []byte("STOP")); ok {
		t.Error("cmd topic shown")
	}
}

func TestConsoleModel(t *testing.T) {
	var sent []protocol.Command
	m := newConsoleModel(func(c protocol.Command) error {
		sent = append(sent, c)
		return nil
	})

	run := func(model tea.Model, msg tea.Msg) tea.Model {
		next, cmd := model.Update(msg)
		if cmd != nil {
			next, _ = next.Update(cmd())
		}
		return next
	}

	var model tea.Model = m
	for _, msg := range []tea.Msg{
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("MOT")},
		tea.KeyMsg{Type: tea.KeySpace},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("X=0.55")},
		tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyEnter},
		tea.KeyMsg{Type: tea.KeyCtrlS},
		tea.KeyMsg{Type: tea.KeyCtrlR},
	} {
		model = run(model, msg)
	}

	if len(sent) != 3 {
		t.Fatalf("sent %d commands", len(sent))
	}
	if got := protocol.Encode(sent[0]); got != "MOT X=0.5" {
		t.Errorf("first = %q", got)
	}
	if _, ok := sent[1].(protocol.Stop); !ok {
		t.Errorf("ctrl+s sent %T", sent[1])
	}
	if _, ok := sent[2].(protocol.Reset); !ok {
		t.Errorf("ctrl+r sent %T", sent[2])
	}

	model = run(model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("FLY")})
	model = run(model, tea.KeyMsg{Type: tea.KeyEnter})
	if len(sent) != 3 {
		t.Error("undecodable line was sent")
	}
	if !strings.Contains(model.View(), "FLY") {
		t.Error("decode error not shown")
	}

	model = run(model, vehicleMsg{cmd: protocol.Fault{Reason: "out of range: FU"}})
	model = run(model, vehicleMsg{cmd: protocol.State{Throttle: map[protocol.Channel]float64{protocol.X: 0.25}, Bat: 11.9}})
	view := model.View()
	for _, want := range []string{"ERR out of range: FU", "X=+0.25", "battery 11.90 V"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}
