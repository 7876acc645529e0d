package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/pubmarine/internal/ramp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pubmarine.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Vehicle.Tick() != 50*time.Millisecond {
		t.Fatalf("default tick = %v", cfg.Vehicle.Tick())
	}
	if ramp.Params(cfg.Ramp) != ramp.DefaultParams {
		t.Fatalf("default ramp = %+v, want %+v", cfg.Ramp, ramp.DefaultParams)
	}
	if cfg.Servo.Offsets["sv2"] != 5 {
		t.Fatalf("default sv2 offset = %d", cfg.Servo.Offsets["sv2"])
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[vehicle]
tick_ms = 20
motors = ["x", "y", "z", "w"]

[ramp]
max_step = 0.1

[servo.offsets]
sv1 = -3

[host]
port = "auto"
simulate = true
read_timeout_ms = 1500
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vehicle.TickMS != 20 || len(cfg.Vehicle.Motors) != 4 {
		t.Fatalf("vehicle = %+v", cfg.Vehicle)
	}
	if cfg.Ramp.MaxStep != 0.1 || cfg.Ramp.MinMag != 0.2 {
		t.Fatalf("ramp = %+v", cfg.Ramp)
	}
	if cfg.Servo.Offsets["sv1"] != -3 {
		t.Fatalf("servo offsets = %v", cfg.Servo.Offsets)
	}
	if cfg.Host.Port != "auto" || !cfg.Host.Simulate || cfg.Host.ReadTimeoutMS != 1500 {
		t.Fatalf("host = %+v", cfg.Host)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"unknown key", "[vehicle]\nspeed = 3\n", "unknown config key"},
		{"bad motor", "[vehicle]\nmotors = [\"q\"]\n", "unknown motor"},
		{"bad tick", "[vehicle]\ntick_ms = 0\n", "tick_ms"},
		{"ramp order", "[ramp]\nmin_start_mag = 0.9\n", "ramp"},
		{"bad servo", "[servo.offsets]\nsv9 = 1\n", "unknown servo"},
		{"depth sensor", "[hardware]\ndepth_sensor = \"sonar\"\n", "depth_sensor"},
		{"simulate interval", "[host]\nsimulate = true\nsimulate_interval_ms = 0\n", "simulate_interval_ms"},
		{"negative simulate interval", "[host]\nsimulate = true\nsimulate_interval_ms = -5\n", "simulate_interval_ms"},
		{"gps baud", "[host]\ngps_port = \"/dev/ttyAMA0\"\ngps_baud = 0\n", "gps_baud"},
		{"syntax", "[vehicle\n", "failed to read config"},
	}
	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error = %v, want containing %q", tc.name, err, tc.want)
		}
	}
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "pubmarine.toml"))
	if err != nil {
		t.Fatalf("sample config: %v", err)
	}
	if !cfg.Hardware.Mock || cfg.Host.Port != "auto" {
		t.Errorf("sample overrides not applied: mock=%v port=%q", cfg.Hardware.Mock, cfg.Host.Port)
	}
	if cfg.Hardware.MotorPins["z"] != [2]string{"GPIO20", "GPIO21"} {
		t.Errorf("motor_pins z = %v", cfg.Hardware.MotorPins["z"])
	}
}
