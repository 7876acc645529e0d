package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/relabs-tech/pubmarine/internal/ramp"
)

// Config holds all application configuration values.
type Config struct {
	Vehicle  Vehicle  `toml:"vehicle"`
	Ramp     Ramp     `toml:"ramp"`
	Servo    Servo    `toml:"servo"`
	Hardware Hardware `toml:"hardware"`
	Host     Host     `toml:"host"`
}

// Vehicle configures the on-board control loop.
type Vehicle struct {
	TickMS      int      `toml:"tick_ms"`
	Port        string   `toml:"port"` // empty: stdin/stdout
	BaudRate    int      `toml:"baud"`
	Motors      []string `toml:"motors"` // any of x, y, z, w
	Interactive bool     `toml:"interactive"`
	MetricsAddr string   `toml:"metrics_addr"`
	RunModeFile string   `toml:"run_mode_file"`
}

// Ramp holds the motor soft-start constants.
type Ramp struct {
	MinMag      float64 `toml:"min_mag"`
	MinStartMag float64 `toml:"min_start_mag"`
	MaxStartMag float64 `toml:"max_start_mag"`
	MaxStep     float64 `toml:"max_step"`
}

// Servo holds the fixed mechanical offset of every servo channel.
type Servo struct {
	Center  int            `toml:"center"`
	Offsets map[string]int `toml:"offsets"` // sv1..sv4
}

// Hardware names the pins and buses the vehicle actuators are wired to.
type Hardware struct {
	Mock bool `toml:"mock"`

	// Each motor is an H-bridge driven by two PWM pins.
	MotorPins  map[string][2]string `toml:"motor_pins"`
	MotorPWMHz int                  `toml:"motor_pwm_hz"`

	ServoPins map[string]string `toml:"servo_pins"`
	JetPins   map[string]string `toml:"jet_pins"`

	IMUSPIDevice string `toml:"imu_spi_device"`
	IMUCSPin     string `toml:"imu_cs_pin"`

	// DepthSensor is "adc" for an analog sender on the ADC or "bmp" for a
	// BMP280 pressure sensor on SPI, which reports metres below the surface.
	DepthSensor       string  `toml:"depth_sensor"`
	BMPSPIDevice      string  `toml:"bmp_spi_device"`
	SurfacePressurePa float64 `toml:"surface_pressure_pa"`

	ADCI2CBus      string  `toml:"adc_i2c_bus"`
	ADCI2CAddr     uint16  `toml:"adc_i2c_addr"`
	BatteryChannel int     `toml:"battery_channel"`
	DepthChannel   int     `toml:"depth_channel"`
	BatteryDivider float64 `toml:"battery_divider"`
	DepthFullScale float64 `toml:"depth_full_scale"` // volts at maximum depth reading
}

// Host configures the serial bridge and its consumers.
type Host struct {
	Port                string   `toml:"port"` // "auto" picks the first USB serial device
	BaudRate            int      `toml:"baud"`
	Simulate            bool     `toml:"simulate"`
	SimulateIntervalMS  int      `toml:"simulate_interval_ms"`
	ReadTimeoutMS       int      `toml:"read_timeout_ms"`
	ReopenDelayMS       int      `toml:"reopen_delay_ms"`
	HTTPAddr            string   `toml:"http_addr"`
	CORSOrigins         []string `toml:"cors_origins"`
	MQTTBroker          string   `toml:"mqtt_broker"` // empty: no MQTT
	MQTTClientID        string   `toml:"mqtt_client_id"`
	MQTTClientIDConsole string   `toml:"mqtt_client_id_console"`
	MQTTTopicPrefix     string   `toml:"mqtt_topic_prefix"`
	GPSPort             string   `toml:"gps_port"` // empty: no surface GPS
	GPSBaudRate         int      `toml:"gps_baud"`
}

// Package-level state for the singleton:
//   - globalConfig is unexported so other packages go through Get().
//   - configOnce makes InitGlobal run a single time.
//   - configMu guards globalConfig for concurrent readers.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration that runs without a config file.
func Default() *Config {
	return &Config{
		Vehicle: Vehicle{
			TickMS:      50,
			BaudRate:    115200,
			Motors:      []string{"x", "y", "z"},
			RunModeFile: "/run/pubmarine/run_mode",
		},
		Ramp: Ramp(ramp.DefaultParams),
		Servo: Servo{
			Center:  90,
			Offsets: map[string]int{"sv1": 0, "sv2": 5, "sv3": 0, "sv4": 0},
		},
		Hardware: Hardware{
			MotorPWMHz:        440,
			IMUSPIDevice:      "/dev/spidev0.0",
			IMUCSPin:          "8",
			DepthSensor:       "adc",
			BMPSPIDevice:      "/dev/spidev0.1",
			SurfacePressurePa: 101325,
			ADCI2CAddr:        0x48,
			BatteryChannel:    0,
			DepthChannel:      1,
			BatteryDivider:    4.0,
			DepthFullScale:    3.3,
		},
		Host: Host{
			Port:                "/dev/ttyUSB0",
			BaudRate:            9600,
			SimulateIntervalMS:  2000,
			ReopenDelayMS:       250,
			HTTPAddr:            ":8000",
			CORSOrigins:         []string{"http://localhost:3000"},
			MQTTClientID:        "pubmarine-host",
			MQTTClientIDConsole: "pubmarine-console",
			MQTTTopicPrefix:     "pubmarine",
			GPSBaudRate:         9600,
		},
	}
}

// Load reads a TOML configuration file on top of Default.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key: %q", undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks ranges and required fields.
func (c *Config) validate() error {
	if c.Vehicle.TickMS <= 0 {
		return fmt.Errorf("vehicle.tick_ms must be positive, got %d", c.Vehicle.TickMS)
	}
	if len(c.Vehicle.Motors) == 0 {
		return fmt.Errorf("vehicle.motors is required")
	}
	for _, m := range c.Vehicle.Motors {
		switch m {
		case "x", "y", "z", "w", "X", "Y", "Z", "W":
		default:
			return fmt.Errorf("vehicle.motors: unknown motor %q (want x, y, z or w)", m)
		}
	}

	r := c.Ramp
	if r.MinMag < 0 || r.MinStartMag < r.MinMag || r.MaxStartMag < r.MinStartMag || r.MaxStartMag > 1 {
		return fmt.Errorf("ramp: need 0 <= min_mag <= min_start_mag <= max_start_mag <= 1, got %v/%v/%v",
			r.MinMag, r.MinStartMag, r.MaxStartMag)
	}
	if r.MaxStep <= 0 || r.MaxStep > 2 {
		return fmt.Errorf("ramp.max_step must be in (0, 2], got %v", r.MaxStep)
	}

	for name := range c.Servo.Offsets {
		switch name {
		case "sv1", "sv2", "sv3", "sv4":
		default:
			return fmt.Errorf("servo.offsets: unknown servo %q", name)
		}
	}
	if c.Servo.Center < 0 || c.Servo.Center > 180 {
		return fmt.Errorf("servo.center must be 0-180, got %d", c.Servo.Center)
	}

	if !c.Hardware.Mock && c.Hardware.MotorPWMHz <= 0 {
		return fmt.Errorf("hardware.motor_pwm_hz is required")
	}
	if c.Hardware.BatteryChannel < 0 || c.Hardware.BatteryChannel > 3 ||
		c.Hardware.DepthChannel < 0 || c.Hardware.DepthChannel > 3 {
		return fmt.Errorf("hardware: adc channels must be 0-3")
	}
	switch c.Hardware.DepthSensor {
	case "adc", "bmp":
	default:
		return fmt.Errorf("hardware.depth_sensor must be adc or bmp, got %q", c.Hardware.DepthSensor)
	}

	if c.Host.Simulate && c.Host.SimulateIntervalMS <= 0 {
		return fmt.Errorf("host.simulate_interval_ms must be positive, got %d", c.Host.SimulateIntervalMS)
	}
	if !c.Host.Simulate && c.Host.Port == "" {
		return fmt.Errorf("host.port is required unless host.simulate is set")
	}
	if c.Host.BaudRate <= 0 {
		return fmt.Errorf("host.baud is required")
	}
	if c.Host.GPSPort != "" && c.Host.GPSBaudRate <= 0 {
		return fmt.Errorf("host.gps_baud is required with host.gps_port")
	}
	if c.Host.ReadTimeoutMS < 0 || c.Host.ReopenDelayMS < 0 {
		return fmt.Errorf("host: timeouts must not be negative")
	}
	return nil
}

// Tick is the vehicle loop period.
func (v Vehicle) Tick() time.Duration { return time.Duration(v.TickMS) * time.Millisecond }

// InitGlobal initializes the global configuration from file. An empty path
// installs Default. Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if configPath == "" {
			globalConfig = Default()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
