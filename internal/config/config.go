package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the face-sentry process.
type Config struct {
	// BotToken is the Telegram bot API token.
	BotToken string `yaml:"bot_token"`
	// ButtonPin is the GPIO name of the toggle button input (pull-down, rising edge).
	ButtonPin string `yaml:"button_pin"`
	// IndicatorPin is the GPIO name of the indicator output.
	IndicatorPin string `yaml:"indicator_pin"`
	// CameraIndex is the V4L2 device index of the camera.
	CameraIndex int `yaml:"camera_index"`
	// FaceModel is the path to the frontal face cascade definition.
	FaceModel string `yaml:"face_model"`
	// EyeModel is the path to the eye cascade definition.
	EyeModel string `yaml:"eye_model"`
	// ScratchDir receives the JPEG artifacts of each detection.
	ScratchDir string `yaml:"scratch_dir"`
	// StateFile persists the operator chat and the detection flag.
	StateFile string `yaml:"state_file"`
	// ControlAddress is the gRPC control listen address; empty disables the control API.
	ControlAddress string `yaml:"control_addr"`
	// Debounce collapses button edges closer than this interval.
	Debounce time.Duration `yaml:"debounce"`
	// IdleInterval is the detection loop tick while idle or after a failed capture.
	IdleInterval time.Duration `yaml:"idle_interval"`
	// Hold is how long the indicator stays on after a match.
	Hold time.Duration `yaml:"hold"`
	// Cooldown is the quiet period after the indicator goes off.
	Cooldown time.Duration `yaml:"cooldown"`
	// QueueSize bounds the notification queue.
	QueueSize int `yaml:"queue_size"`
	// Preview opens a window showing every analysed frame.
	Preview bool `yaml:"preview"`
	// Retention controls how many detection artifacts are kept on disk.
	Retention Retention `yaml:"retention"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFile optionally duplicates the log into a rotated file.
	LogFile string `yaml:"log_file"`
	// Timeout bounds chat API calls and control RPCs.
	Timeout time.Duration `yaml:"timeout"`
}

// Retention is the artifact retention policy of the scratch directory.
type Retention struct {
	// MaxFiles keeps at most this many artifacts, newest first; 0 keeps all.
	MaxFiles int `yaml:"max_files"`
	// MaxAge removes artifacts older than this; 0 disables age-based removal.
	MaxAge time.Duration `yaml:"max_age"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "face-sentry.yaml"

	// DefaultStateFilename is the default filename for persisted state.
	DefaultStateFilename = "face-sentry-state.json"

	// DefaultButtonPin matches BCM 21 on a Raspberry Pi header.
	DefaultButtonPin = "GPIO21"

	// DefaultIndicatorPin matches BCM 6 on a Raspberry Pi header.
	DefaultIndicatorPin = "GPIO6"

	// DefaultFaceModel is the stock OpenCV frontal face cascade.
	DefaultFaceModel = "./haar-cascade-files-master/haarcascade_frontalface_default.xml"

	// DefaultEyeModel is the stock OpenCV eye cascade.
	DefaultEyeModel = "./haar-cascade-files-master/haarcascade_eye.xml"

	// DefaultScratchDir receives detection artifacts.
	DefaultScratchDir = "/tmp"

	// DefaultDebounce is the button debounce window.
	DefaultDebounce = 200 * time.Millisecond

	// DefaultIdleInterval is the detection loop idle tick.
	DefaultIdleInterval = 1 * time.Second

	// DefaultHold is how long the indicator stays on after a match.
	DefaultHold = 3 * time.Second

	// DefaultCooldown is the idle period after the indicator goes off.
	DefaultCooldown = 10 * time.Second

	// DefaultQueueSize bounds the notification queue.
	DefaultQueueSize = 32

	// DefaultMaxFiles is the default number of artifacts kept on disk.
	DefaultMaxFiles = 100

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBotTokenRequired is returned when the bot token is missing.
	errBotTokenRequired = errors.New("bot token must be provided")
	// errSamePins is returned when button and indicator share a pin.
	errSamePins = errors.New("button and indicator must use different pins")
	// errNegativeValue is returned for negative counters and indexes.
	errNegativeValue = errors.New("value must not be negative")
	// ErrConfigExists is returned by Init when it would overwrite a file.
	ErrConfigExists = errors.New("configuration file already exists")
)

// Load reads configuration from the provided path, fills defaults and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// The file holds the bot token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Init writes a configuration with every default filled in and the given bot token.
// An existing file is only replaced when overwrite is set.
func Init(path, botToken string, overwrite bool) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	if !overwrite {
		if _, err := os.Stat(filepath.Clean(path)); err == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrConfigExists)
		}
	}

	cfg := &Config{
		BotToken: botToken,
	}

	if err := Save(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate fills defaults for unset fields and checks the rest.
//
//nolint:cyclop // A flat list of defaults reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.BotToken = strings.TrimSpace(cfg.BotToken)
	if cfg.BotToken == "" {
		return errBotTokenRequired
	}

	setDefault(&cfg.ButtonPin, DefaultButtonPin)
	setDefault(&cfg.IndicatorPin, DefaultIndicatorPin)
	setDefault(&cfg.FaceModel, DefaultFaceModel)
	setDefault(&cfg.EyeModel, DefaultEyeModel)
	setDefault(&cfg.ScratchDir, DefaultScratchDir)
	setDefault(&cfg.StateFile, DefaultStateFilename)

	if strings.EqualFold(cfg.ButtonPin, cfg.IndicatorPin) {
		return errSamePins
	}

	if cfg.CameraIndex < 0 {
		return fmt.Errorf("camera_index: %w", errNegativeValue)
	}

	if cfg.Retention.MaxFiles < 0 {
		return fmt.Errorf("retention.max_files: %w", errNegativeValue)
	}

	if cfg.Retention.MaxFiles == 0 && cfg.Retention.MaxAge == 0 {
		cfg.Retention.MaxFiles = DefaultMaxFiles
	}

	if cfg.ControlAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.ControlAddress); err != nil {
			return fmt.Errorf("invalid control address: %w", err)
		}
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = DefaultIdleInterval
	}

	if cfg.Hold <= 0 {
		cfg.Hold = DefaultHold
	}

	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}

func setDefault(field *string, value string) {
	*field = strings.TrimSpace(*field)
	if *field == "" {
		*field = value
	}
}
