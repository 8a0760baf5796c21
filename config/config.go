// Package config loads the toxvoice YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/av/codec"
	"github.com/opd-ai/toxvoice/limits"
	simulated "github.com/opd-ai/toxvoice/testing"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Source types.
const (
	SourcePush = "push"
	SourcePull = "pull"
	SourceFile = "file"
)

// Encoder types.
const (
	EncoderPCM  = "pcm"
	EncoderOpus = "opus"
)

// Defaults filled in for omitted fields.
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultMetricsAddress = ":9464"
	DefaultMetricsPath    = "/metrics"
	DefaultStatusInterval = 5 * time.Second
	DefaultSamplingRate   = 48000
	DefaultFrameSize      = 960
	DefaultChannels       = 1
	DefaultSampleKind     = "short"
	DefaultOpusBitrate    = 32000
	DefaultApplication    = "voip"
	DefaultToneHz         = 440
)

// Config is the complete toxvoice configuration.
type Config struct {
	Logging        LoggingConfig `yaml:"logging"`
	Metrics        MetricsConfig `yaml:"metrics"`
	StatusInterval time.Duration `yaml:"status_interval"`
	Voices         []VoiceConfig `yaml:"voices"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// VoiceConfig describes one outgoing voice and its source.
type VoiceConfig struct {
	Name        string           `yaml:"name"`
	Stream      StreamConfig     `yaml:"stream"`
	Source      SourceConfig     `yaml:"source"`
	Encoder     EncoderConfig    `yaml:"encoder"`
	Detector    DetectorConfig   `yaml:"detector"`
	LevelMeter  LevelMeterConfig `yaml:"level_meter"`
	Gain        float64          `yaml:"gain"`
	CalibrateMs int              `yaml:"calibrate_ms"`
}

// StreamConfig is the YAML form of audio.StreamConfig.
type StreamConfig struct {
	SourceSamplingRate int    `yaml:"source_sampling_rate"`
	SamplingRate       int    `yaml:"sampling_rate"`
	FrameSize          int    `yaml:"frame_size"`
	Channels           int    `yaml:"channels"`
	SampleKind         string `yaml:"sample_kind"`
}

// SourceConfig selects the capture source.
type SourceConfig struct {
	Type       string       `yaml:"type"` // push, pull or file
	Path       string       `yaml:"path"` // raw PCM file for type file
	Signal     SignalConfig `yaml:"signal"`
	DurationMs int          `yaml:"duration_ms"` // pull sources only; 0 is endless
}

// SignalConfig is the synthetic signal of simulated sources.
type SignalConfig struct {
	Kind        string  `yaml:"kind"` // silence, tone or bursts
	Amplitude   float64 `yaml:"amplitude"`
	FrequencyHz float64 `yaml:"frequency_hz"`
	BurstOnMs   int     `yaml:"burst_on_ms"`
	BurstOffMs  int     `yaml:"burst_off_ms"`
}

// EncoderConfig selects the encoder sink.
type EncoderConfig struct {
	Type        string `yaml:"type"` // pcm or opus
	Bitrate     int    `yaml:"bitrate"`
	Application string `yaml:"application"`
	Verify      bool   `yaml:"verify"` // decode every Opus packet
}

// DetectorConfig is the YAML form of audio.DetectorConfig.
type DetectorConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Threshold         float32 `yaml:"threshold"`
	Hysteresis        float32 `yaml:"hysteresis"`
	ActivityDelayMs   int     `yaml:"activity_delay_ms"`
	CalibrationFactor float32 `yaml:"calibration_factor"`
	MinThreshold      float32 `yaml:"min_threshold"`
}

// LevelMeterConfig configures level smoothing.
type LevelMeterConfig struct {
	WindowMs int `yaml:"window_ms"`
}

// Default returns a configuration with one simulated voice, used when no
// configuration file is given.
func Default() *Config {
	c := &Config{
		Voices: []VoiceConfig{{
			Name: "mic",
			Source: SourceConfig{
				Type: SourcePush,
				Signal: SignalConfig{
					Kind:       "bursts",
					Amplitude:  0.3,
					BurstOnMs:  400,
					BurstOffMs: 600,
				},
			},
			Detector:    DetectorConfig{Enabled: true},
			CalibrateMs: 1000,
		}},
	}
	c.applyDefaults()
	return c
}

// Load reads, defaults, validates and applies environment overrides to the
// configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML data into a validated configuration. Unknown fields are
// rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	applyEnvironmentOverrides(&c)
	return &c, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Logging.Level, DefaultLogLevel)
	setDefault(&c.Logging.Format, DefaultLogFormat)
	setDefault(&c.Metrics.Address, DefaultMetricsAddress)
	setDefault(&c.Metrics.Path, DefaultMetricsPath)
	setDefault(&c.StatusInterval, DefaultStatusInterval)

	for i := range c.Voices {
		c.Voices[i].applyDefaults()
	}
}

func (v *VoiceConfig) applyDefaults() {
	setDefault(&v.Stream.SamplingRate, DefaultSamplingRate)
	setDefault(&v.Stream.SourceSamplingRate, v.Stream.SamplingRate)
	setDefault(&v.Stream.FrameSize, v.Stream.SamplingRate*DefaultFrameSize/DefaultSamplingRate)
	setDefault(&v.Stream.Channels, DefaultChannels)
	setDefault(&v.Stream.SampleKind, DefaultSampleKind)

	setDefault(&v.Source.Type, SourcePush)
	if v.Source.Signal.Kind != "silence" {
		setDefault(&v.Source.Signal.FrequencyHz, DefaultToneHz)
	}

	setDefault(&v.Encoder.Type, EncoderPCM)
	if v.Encoder.Type == EncoderOpus {
		setDefault(&v.Encoder.Bitrate, DefaultOpusBitrate)
		setDefault(&v.Encoder.Application, DefaultApplication)
	}

	d := audio.DefaultDetectorConfig()
	setDefault(&v.Detector.Threshold, d.Threshold)
	setDefault(&v.Detector.Hysteresis, d.Hysteresis)
	setDefault(&v.Detector.CalibrationFactor, d.CalibrationFactor)
	setDefault(&v.Detector.MinThreshold, d.MinThreshold)

	setDefault(&v.LevelMeter.WindowMs, audio.DefaultLevelWindowMs)
	setDefault(&v.Gain, 1.0)
}

func setDefault[V comparable](field *V, value V) {
	var zero V
	if *field == zero {
		*field = value
	}
}

// Validate checks the whole configuration. Every failure wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalidConfig, err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: logging: format must be text or json, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.StatusInterval < 0 {
		return fmt.Errorf("%w: status_interval must not be negative", ErrInvalidConfig)
	}
	if len(c.Voices) == 0 {
		return fmt.Errorf("%w: at least one voice is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Voices))
	for i := range c.Voices {
		v := &c.Voices[i]
		if v.Name == "" {
			return fmt.Errorf("%w: voice %d: name is required", ErrInvalidConfig, i)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: voice %q: duplicate name", ErrInvalidConfig, v.Name)
		}
		seen[v.Name] = true
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: voice %q: %v", ErrInvalidConfig, v.Name, err)
		}
	}
	return nil
}

// Validate checks one voice.
func (v *VoiceConfig) Validate() error {
	stream, err := v.StreamConfig()
	if err != nil {
		return err
	}
	if err := stream.Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	switch v.Source.Type {
	case SourcePush, SourcePull:
		if _, err := v.Signal(); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	case SourceFile:
		if v.Source.Path == "" {
			return fmt.Errorf("source: path is required for file sources")
		}
	default:
		return fmt.Errorf("source: unknown type %q", v.Source.Type)
	}
	if v.Source.DurationMs < 0 {
		return fmt.Errorf("source: duration_ms must not be negative")
	}

	switch v.Encoder.Type {
	case EncoderPCM:
	case EncoderOpus:
		if stream.SampleKind != audio.SampleShort {
			return fmt.Errorf("encoder: opus requires sample_kind short")
		}
		if err := codec.ValidateOpusShape(stream.SamplingRate, stream.FrameSize, stream.Channels); err != nil {
			return fmt.Errorf("encoder: %w", err)
		}
		if _, err := codec.ParseApplication(v.Encoder.Application); err != nil {
			return fmt.Errorf("encoder: %w", err)
		}
	default:
		return fmt.Errorf("encoder: unknown type %q", v.Encoder.Type)
	}

	if err := v.DetectorConfig().Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if v.LevelMeter.WindowMs <= 0 {
		return fmt.Errorf("level_meter: window_ms must be positive")
	}
	if v.Gain <= 0 || v.Gain > audio.MaxGain {
		return fmt.Errorf("gain %v outside (0, %v]", v.Gain, audio.MaxGain)
	}
	if v.CalibrateMs != 0 {
		if err := limits.ValidateCalibrationDuration(v.CalibrateMs); err != nil {
			return fmt.Errorf("calibrate_ms: %w", err)
		}
	}
	return nil
}

// StreamConfig converts the stream section.
func (v *VoiceConfig) StreamConfig() (audio.StreamConfig, error) {
	kind, err := audio.ParseSampleKind(v.Stream.SampleKind)
	if err != nil {
		return audio.StreamConfig{}, fmt.Errorf("stream: %w", err)
	}
	return audio.StreamConfig{
		SourceSamplingRate: v.Stream.SourceSamplingRate,
		SamplingRate:       v.Stream.SamplingRate,
		FrameSize:          v.Stream.FrameSize,
		Channels:           v.Stream.Channels,
		SampleKind:         kind,
	}, nil
}

// DetectorConfig converts the detector section.
func (v *VoiceConfig) DetectorConfig() audio.DetectorConfig {
	return audio.DetectorConfig{
		Threshold:         v.Detector.Threshold,
		Hysteresis:        v.Detector.Hysteresis,
		ActivityDelayMs:   v.Detector.ActivityDelayMs,
		Enabled:           v.Detector.Enabled,
		CalibrationFactor: v.Detector.CalibrationFactor,
		MinThreshold:      v.Detector.MinThreshold,
	}
}

// Signal converts the simulated source signal.
func (v *VoiceConfig) Signal() (simulated.Signal, error) {
	kind, err := simulated.ParseSignalKind(v.Source.Signal.Kind)
	if err != nil {
		return simulated.Signal{}, err
	}
	s := simulated.Signal{
		Kind:        kind,
		Amplitude:   v.Source.Signal.Amplitude,
		FrequencyHz: v.Source.Signal.FrequencyHz,
		BurstOnMs:   v.Source.Signal.BurstOnMs,
		BurstOffMs:  v.Source.Signal.BurstOffMs,
	}
	if err := s.Validate(); err != nil {
		return simulated.Signal{}, err
	}
	return s, nil
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Formatter returns the logrus formatter for the configured format.
func (c *Config) Formatter() logrus.Formatter {
	if c.Logging.Format == "json" {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{FullTimestamp: true}
}

// applyEnvironmentOverrides updates c from TOXVOICE_* environment variables.
// Invalid values are logged and ignored.
func applyEnvironmentOverrides(c *Config) {
	parseLogLevelSetting(c)
	parseLogFormatSetting(c)
	parseMetricsAddressSetting(c)
}

func parseLogLevelSetting(c *Config) {
	str := os.Getenv("TOXVOICE_LOG_LEVEL")
	if str == "" {
		return
	}
	if _, err := logrus.ParseLevel(str); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseLogLevelSetting",
			"env_var":     "TOXVOICE_LOG_LEVEL",
			"value":       str,
			"error":       err.Error(),
			"using_value": c.Logging.Level,
		}).Warn("Failed to parse TOXVOICE_LOG_LEVEL environment variable, using configured value")
		return
	}
	c.Logging.Level = str
}

func parseLogFormatSetting(c *Config) {
	str := os.Getenv("TOXVOICE_LOG_FORMAT")
	if str == "" {
		return
	}
	if str != "text" && str != "json" {
		logrus.WithFields(logrus.Fields{
			"function":    "parseLogFormatSetting",
			"env_var":     "TOXVOICE_LOG_FORMAT",
			"value":       str,
			"using_value": c.Logging.Format,
		}).Warn("Unknown TOXVOICE_LOG_FORMAT value, using configured value")
		return
	}
	c.Logging.Format = str
}

// parseMetricsAddressSetting sets the metrics listen address from
// TOXVOICE_METRICS_ADDRESS and enables the endpoint.
func parseMetricsAddressSetting(c *Config) {
	if str := os.Getenv("TOXVOICE_METRICS_ADDRESS"); str != "" {
		c.Metrics.Address = str
		c.Metrics.Enabled = true
	}
}
