package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "clipwav"

const (
	ModePushToTalk = "PushToTalk"
	ModeToggle     = "Toggle"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Hotkey     string           `yaml:"hotkey"`
	Mode       string           `yaml:"mode"` // "PushToTalk" or "Toggle"
	Audio      AudioConfig      `yaml:"audio"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Inject     InjectConfig     `yaml:"inject"`
	Notify     NotifyConfig     `yaml:"notify"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	LogLevel   string           `yaml:"log_level"`

	path string
}

// AudioConfig holds the capture constraints requested from the device.
// They are hints; the pipeline normalizes whatever actually arrives.
type AudioConfig struct {
	DeviceID       string        `yaml:"device_id"`
	SaveDir        string        `yaml:"save_dir"` // keep every clip as <session>.wav when set
	SampleRate     int           `yaml:"sample_rate"`
	Channels       int           `yaml:"channels"`
	BitDepth       int           `yaml:"bit_depth"`
	MaxDuration    time.Duration `yaml:"max_duration"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

type TranscribeConfig struct {
	Backend   string        `yaml:"backend"`  // "native", "server" or "none"
	Model     string        `yaml:"model"`    // "base.en", "small", etc.
	Language  string        `yaml:"language"` // "auto", "en", etc.
	Threads   int           `yaml:"threads"`
	ServerURL string        `yaml:"server_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type InjectConfig struct {
	Clipboard   bool `yaml:"clipboard"`
	AppendSpace bool `yaml:"append_space"`
	Capitalize  bool `yaml:"capitalize"`
}

type NotifyConfig struct {
	Desktop bool `yaml:"desktop"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the /metrics endpoint
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Hotkey: "Enter",
		Mode:   ModeToggle,
		Audio: AudioConfig{
			SampleRate:     16000,
			Channels:       1,
			BitDepth:       16,
			MaxDuration:    5 * time.Second,
			AcquireTimeout: 3 * time.Second,
		},
		Transcribe: TranscribeConfig{
			Backend:  "native",
			Model:    "base.en",
			Language: "auto",
			Threads:  0, // Auto-detect
			Timeout:  30 * time.Second,
		},
		Inject: InjectConfig{
			Clipboard:   true,
			AppendSpace: true,
			Capitalize:  true,
		},
		Notify:   NotifyConfig{Desktop: false},
		LogLevel: "info",
	}
}

// Load reads the config from the platform path or returns defaults
func Load() (*Config, error) {
	return LoadFile(configPath())
}

// LoadFile reads the config at path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section and reports the first problem found
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePushToTalk, ModeToggle:
	default:
		return fmt.Errorf("%w: mode must be PushToTalk or Toggle, got %q", ErrInvalidConfig, c.Mode)
	}

	a := c.Audio
	if a.SampleRate <= 0 {
		return fmt.Errorf("%w: audio.sample_rate must be positive", ErrInvalidConfig)
	}
	if a.Channels <= 0 {
		return fmt.Errorf("%w: audio.channels must be positive", ErrInvalidConfig)
	}
	if a.BitDepth != 16 {
		return fmt.Errorf("%w: audio.bit_depth must be 16, got %d", ErrInvalidConfig, a.BitDepth)
	}
	if a.MaxDuration < 0 || a.AcquireTimeout < 0 {
		return fmt.Errorf("%w: audio durations must not be negative", ErrInvalidConfig)
	}

	t := c.Transcribe
	switch t.Backend {
	case "native":
		if t.Model == "" {
			return fmt.Errorf("%w: transcribe.model is required for the native backend", ErrInvalidConfig)
		}
	case "server":
		if t.ServerURL == "" {
			return fmt.Errorf("%w: transcribe.server_url is required for the server backend", ErrInvalidConfig)
		}
	case "none":
	default:
		return fmt.Errorf("%w: unknown transcribe.backend %q", ErrInvalidConfig, t.Backend)
	}
	if t.Threads < 0 {
		return fmt.Errorf("%w: transcribe.threads must not be negative", ErrInvalidConfig)
	}

	return nil
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.Path()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName, "config.yaml")
}

// ModelsPath returns the platform-specific models directory path
func ModelsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appName, "models")
}
