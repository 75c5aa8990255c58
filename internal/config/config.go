// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"vibesrgb/internal/dsp"
	"vibesrgb/internal/openrgb"
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	Command   string          `yaml:"-"`                 // A one-off command to execute instead of running the pipeline (e.g., "list").
	BlinkLED  int             `yaml:"-"`                 // LED index for the blink command.
	Audio     AudioConfig     `yaml:"audio"`             // Audio capture settings.
	Layout    LayoutConfig    `yaml:"layout"`            // LED layout file settings.
	OpenRGB   OpenRGBConfig   `yaml:"openrgb"`           // Lighting-control service settings.
	Binning   BinningConfig   `yaml:"binning"`           // Frequency binning strategy.
	Paint     PaintConfig     `yaml:"paint"`             // Color policy.
	Monitor   MonitorConfig   `yaml:"monitor"`           // Observability taps for bin data.
	Recording RecordingConfig `yaml:"recording"`         // Mono stream recording settings.
}

// AudioConfig holds settings for the capture device and windowing.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	DeviceName      string  `yaml:"device_name"`       // Name substring match; overrides input_device when set.
	InputChannels   int     `yaml:"input_channels"`    // Channels to capture (0 = device maximum).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (0 = device default).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	WindowMillis    float64 `yaml:"window_ms"`         // Analysis window duration; also the scheduler period.
}

// LayoutConfig points at the LED layout file written by the configurator.
type LayoutConfig struct {
	Path string `yaml:"path"`
}

// OpenRGBConfig holds the lighting-control service endpoint.
type OpenRGBConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	ControllerID          int    `yaml:"controller_id"`
	ClientName            string `yaml:"client_name"`
	DeliveryTimeoutMillis int    `yaml:"delivery_timeout_ms"` // Bound on each frame delivery.
}

// DeliveryTimeout returns the per-frame delivery bound as a duration.
func (c OpenRGBConfig) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutMillis) * time.Millisecond
}

// Addr returns the "host:port" dial address.
func (c OpenRGBConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BinningConfig selects the frequency binning strategy.
type BinningConfig struct {
	Strategy string      `yaml:"strategy"` // "linear", "logarithmic" or "custom".
	Bins     int         `yaml:"bins"`     // Bin count for the linear strategy.
	Base     float64     `yaml:"base"`     // Growth base for the logarithmic strategy; must be > 1.
	Ranges   []dsp.Range `yaml:"ranges"`   // Explicit Hertz ranges for the custom strategy.
}

// NewBinner constructs the configured Binner for the given sample rate.
func (c BinningConfig) NewBinner(sampleRate float64) (*dsp.Binner, error) {
	switch c.Strategy {
	case "linear":
		return dsp.NewLinearBinner(c.Bins, sampleRate)
	case "logarithmic":
		return dsp.NewLogarithmicBinner(c.Base, sampleRate)
	case "custom":
		return dsp.NewCustomBinner(c.Ranges, sampleRate)
	default:
		return nil, fmt.Errorf("unknown binning strategy %q", c.Strategy)
	}
}

// PaintConfig holds the color policy for the painter.
type PaintConfig struct {
	Threshold   float64 `yaml:"threshold"`    // Magnitude above which an element lights up.
	ActiveColor string  `yaml:"active_color"` // Hex "#rrggbb" color for active elements.
}

// Color parses the configured active color.
func (c PaintConfig) Color() (openrgb.Color, error) {
	s := c.ActiveColor
	if len(s) != 7 || s[0] != '#' {
		return openrgb.Color{}, fmt.Errorf("active color %q is not of the form #rrggbb", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return openrgb.Color{}, fmt.Errorf("active color %q is not of the form #rrggbb", s)
	}
	return openrgb.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MonitorConfig holds settings for the observability taps.
type MonitorConfig struct {
	WebSocketEnabled   bool   `yaml:"websocket_enabled"`  // Enable the WebSocket bin broadcast.
	WebSocketAddr      string `yaml:"websocket_addr"`     // Listen address for the WebSocket server.
	UDPEnabled         bool   `yaml:"udp_enabled"`        // Enable the binary UDP bin feed.
	UDPTargetAddress   string `yaml:"udp_target_address"` // Target address for UDP packets.
	SendIntervalMillis int    `yaml:"send_interval_ms"`   // Minimum interval between updates on either tap.
}

// SendInterval returns the minimum tap update interval as a duration.
func (c MonitorConfig) SendInterval() time.Duration {
	return time.Duration(c.SendIntervalMillis) * time.Millisecond
}

// RecordingConfig holds settings for recording the mixed mono stream.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // Empty generates recording-DD-MM-YYYY-HHMMSS.wav.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     -1,
			DeviceName:      "",
			InputChannels:   0, // device maximum
			SampleRate:      0, // device default
			FramesPerBuffer: 512,
			LowLatency:      false,
			WindowMillis:    50,
		},
		Layout: LayoutConfig{
			Path: "layout.json",
		},
		OpenRGB: OpenRGBConfig{
			Host:                  "localhost",
			Port:                  6742,
			ControllerID:          0,
			ClientName:            "vibesrgb",
			DeliveryTimeoutMillis: 500,
		},
		Binning: BinningConfig{
			Strategy: "linear",
			Bins:     10,
			Base:     2,
		},
		Paint: PaintConfig{
			Threshold:   1.0,
			ActiveColor: "#ff0000",
		},
		Monitor: MonitorConfig{
			WebSocketEnabled:   false,
			WebSocketAddr:      ":8080",
			UDPEnabled:         false,
			UDPTargetAddress:   "127.0.0.1:9090",
			SendIntervalMillis: 33, // ~30Hz
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path.
// If path is empty it searches default locations ("config.yaml") and
// falls back to built-in defaults when no file is found. Environment
// variable overrides are applied after loading, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with. Binning
// parameters are checked here so a degenerate logarithmic base fails at
// startup instead of hanging the range generator.
func (c *Config) Validate() error {
	if c.Audio.WindowMillis <= 0 {
		return fmt.Errorf("audio.window_ms must be positive, got %v", c.Audio.WindowMillis)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}

	switch c.Binning.Strategy {
	case "linear":
		if c.Binning.Bins <= 0 {
			return fmt.Errorf("binning.bins must be positive for the linear strategy, got %d", c.Binning.Bins)
		}
	case "logarithmic":
		if c.Binning.Base <= 1 {
			return fmt.Errorf("binning.base must be greater than 1 for the logarithmic strategy, got %v", c.Binning.Base)
		}
	case "custom":
		if len(c.Binning.Ranges) == 0 {
			return fmt.Errorf("binning.ranges must not be empty for the custom strategy")
		}
		for i, r := range c.Binning.Ranges {
			if r.End <= r.Start {
				return fmt.Errorf("binning.ranges[%d] is not increasing: [%d,%d)", i, r.Start, r.End)
			}
		}
	default:
		return fmt.Errorf("unknown binning strategy %q", c.Binning.Strategy)
	}

	if c.Paint.Threshold < 0 {
		return fmt.Errorf("paint.threshold must not be negative, got %v", c.Paint.Threshold)
	}
	if _, err := c.Paint.Color(); err != nil {
		return err
	}

	if c.OpenRGB.Host == "" {
		return fmt.Errorf("openrgb.host must be set")
	}
	if c.OpenRGB.Port <= 0 || c.OpenRGB.Port > 65535 {
		return fmt.Errorf("openrgb.port %d is out of range", c.OpenRGB.Port)
	}
	if c.OpenRGB.ControllerID < 0 {
		return fmt.Errorf("openrgb.controller_id must not be negative, got %d", c.OpenRGB.ControllerID)
	}
	if c.OpenRGB.DeliveryTimeoutMillis <= 0 {
		return fmt.Errorf("openrgb.delivery_timeout_ms must be positive, got %d", c.OpenRGB.DeliveryTimeoutMillis)
	}

	if c.Layout.Path == "" {
		return fmt.Errorf("layout.path must be set")
	}

	return nil
}

// applyEnvOverrides applies VIBESRGB_* environment variables on top of
// the loaded configuration.
func (cfg *Config) applyEnvOverrides() {
	// VIBESRGB_LOG_LEVEL
	if val, ok := os.LookupEnv("VIBESRGB_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	// VIBESRGB_DEVICE_NAME
	if val, ok := os.LookupEnv("VIBESRGB_DEVICE_NAME"); ok {
		cfg.Audio.DeviceName = val
	}
	// VIBESRGB_OPENRGB_HOST
	if val, ok := os.LookupEnv("VIBESRGB_OPENRGB_HOST"); ok {
		cfg.OpenRGB.Host = val
	}
	// VIBESRGB_OPENRGB_PORT
	if val, ok := os.LookupEnv("VIBESRGB_OPENRGB_PORT"); ok {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.OpenRGB.Port = port
		}
	}
}
