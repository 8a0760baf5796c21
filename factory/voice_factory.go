package factory

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/opd-ai/toxvoice/av"
	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/interfaces"
	"github.com/opd-ai/toxvoice/limits"
	"github.com/opd-ai/toxvoice/real"
	"github.com/opd-ai/toxvoice/testing"
	"github.com/sirupsen/logrus"
)

// Default stream shape: 20 ms mono 16-bit frames at 48 kHz.
const (
	DefaultSamplingRate = 48000
	DefaultFrameSize    = 960
	DefaultChannels     = 1
	DefaultSampleKind   = audio.SampleShort
)

// ErrNilConfig is returned when a nil stream configuration is supplied where
// the factory default cannot be substituted.
var ErrNilConfig = errors.New("stream config cannot be nil")

// SourceMode selects how a simulated source delivers samples.
type SourceMode int

const (
	// SourcePush dispatches bursts from a capture goroutine through a
	// real.HandleTable.
	SourcePush SourceMode = iota
	// SourcePull makes samples available to Service at real-time pace.
	SourcePull
)

// String returns the configuration name of the mode.
func (m SourceMode) String() string {
	if m == SourcePull {
		return "pull"
	}
	return "push"
}

// VoiceFactory creates outgoing voices of either sample representation from
// a tagged StreamConfig. It is safe for concurrent use.
type VoiceFactory struct {
	mu            sync.RWMutex
	defaultConfig *audio.StreamConfig
}

// NewVoiceFactory creates a factory with the default stream configuration,
// adjusted by TOXVOICE_* environment variables.
func NewVoiceFactory() *VoiceFactory {
	defaultConfig := createDefaultConfig()
	applyEnvironmentOverrides(defaultConfig)
	logConfigurationInfo(defaultConfig)

	return &VoiceFactory{
		defaultConfig: defaultConfig,
	}
}

func createDefaultConfig() *audio.StreamConfig {
	return &audio.StreamConfig{
		SourceSamplingRate: DefaultSamplingRate,
		SamplingRate:       DefaultSamplingRate,
		FrameSize:          DefaultFrameSize,
		Channels:           DefaultChannels,
		SampleKind:         DefaultSampleKind,
	}
}

// applyEnvironmentOverrides updates config from TOXVOICE_* environment
// variables. Unparseable or out-of-range values are logged and ignored.
func applyEnvironmentOverrides(config *audio.StreamConfig) {
	parseSamplingRateSetting(config)
	parseSourceSamplingRateSetting(config)
	parseFrameSizeSetting(config)
	parseChannelsSetting(config)
	parseSampleKindSetting(config)
}

// parseIntSetting reads an integer environment variable and checks it with
// validate. It reports false when the variable is unset or rejected.
func parseIntSetting(function, envVar string, current int, validate func(int) error) (int, bool) {
	str := os.Getenv(envVar)
	if str == "" {
		return 0, false
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    function,
			"env_var":     envVar,
			"value":       str,
			"error":       err.Error(),
			"using_value": current,
		}).Warn("Failed to parse environment variable, using default")
		return 0, false
	}
	if err := validate(value); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    function,
			"env_var":     envVar,
			"value":       value,
			"error":       err.Error(),
			"using_value": current,
		}).Warn("Environment variable out of bounds, using default")
		return 0, false
	}
	return value, true
}

// parseSamplingRateSetting sets both rates from TOXVOICE_SAMPLING_RATE, so a
// single variable yields a stream without resampling.
func parseSamplingRateSetting(config *audio.StreamConfig) {
	if rate, ok := parseIntSetting("parseSamplingRateSetting", "TOXVOICE_SAMPLING_RATE",
		config.SamplingRate, limits.ValidateSamplingRate); ok {
		config.SamplingRate = rate
		config.SourceSamplingRate = rate
	}
}

// parseSourceSamplingRateSetting sets the capture rate from
// TOXVOICE_SOURCE_SAMPLING_RATE.
func parseSourceSamplingRateSetting(config *audio.StreamConfig) {
	if rate, ok := parseIntSetting("parseSourceSamplingRateSetting", "TOXVOICE_SOURCE_SAMPLING_RATE",
		config.SourceSamplingRate, limits.ValidateSamplingRate); ok {
		config.SourceSamplingRate = rate
	}
}

func parseFrameSizeSetting(config *audio.StreamConfig) {
	if size, ok := parseIntSetting("parseFrameSizeSetting", "TOXVOICE_FRAME_SIZE",
		config.FrameSize, limits.ValidateFrameSize); ok {
		config.FrameSize = size
	}
}

func parseChannelsSetting(config *audio.StreamConfig) {
	if channels, ok := parseIntSetting("parseChannelsSetting", "TOXVOICE_CHANNELS",
		config.Channels, limits.ValidateChannels); ok {
		config.Channels = channels
	}
}

// parseSampleKindSetting updates SampleKind from TOXVOICE_SAMPLE_KIND
// ("float" or "short").
func parseSampleKindSetting(config *audio.StreamConfig) {
	str := os.Getenv("TOXVOICE_SAMPLE_KIND")
	if str == "" {
		return
	}
	kind, err := audio.ParseSampleKind(str)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseSampleKindSetting",
			"env_var":     "TOXVOICE_SAMPLE_KIND",
			"value":       str,
			"error":       err.Error(),
			"using_value": config.SampleKind.String(),
		}).Warn("Failed to parse TOXVOICE_SAMPLE_KIND environment variable, using default")
		return
	}
	config.SampleKind = kind
}

func logConfigurationInfo(config *audio.StreamConfig) {
	logrus.WithFields(logrus.Fields{
		"function":             "NewVoiceFactory",
		"source_sampling_rate": config.SourceSamplingRate,
		"sampling_rate":        config.SamplingRate,
		"frame_size":           config.FrameSize,
		"channels":             config.Channels,
		"sample_kind":          config.SampleKind.String(),
	}).Info("Created voice factory with configuration")
}

// resolve returns config, or a copy of the default when config is nil.
func (f *VoiceFactory) resolve(config *audio.StreamConfig) audio.StreamConfig {
	if config != nil {
		return *config
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return *f.defaultConfig
}

// CreateLocalVoice creates a voice instantiated for config's SampleKind. A nil
// config uses the factory default. encoder may be nil, in which case the voice
// encodes raw PCM into a discarding sink; otherwise it must accept frames of
// the configured sample type or ErrEncoderMismatch is returned.
func (f *VoiceFactory) CreateLocalVoice(name string, config *audio.StreamConfig, encoder interfaces.IEncoder, opts ...av.Option) (interfaces.ILocalVoiceAudio, error) {
	cfg := f.resolve(config)

	logrus.WithFields(logrus.Fields{
		"function":    "CreateLocalVoice",
		"voice":       name,
		"sample_kind": cfg.SampleKind.String(),
		"has_encoder": encoder != nil,
	}).Info("Creating local voice")

	switch cfg.SampleKind {
	case audio.SampleFloat:
		return createVoice[float32](name, cfg, encoder, opts)
	case audio.SampleShort:
		return createVoice[int16](name, cfg, encoder, opts)
	default:
		return nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedSampleKind, cfg.SampleKind)
	}
}

func createVoice[T audio.Sample](name string, cfg audio.StreamConfig, encoder interfaces.IEncoder, opts []av.Option) (interfaces.ILocalVoiceAudio, error) {
	var frameEncoder interfaces.IFrameEncoder[T]
	if encoder != nil {
		fe, ok := encoder.(interfaces.IFrameEncoder[T])
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function":     "CreateLocalVoice",
				"voice":        name,
				"stream_kind":  cfg.SampleKind.String(),
				"encoder_kind": encoder.SampleKind().String(),
			}).Error("Encoder does not accept the stream sample type")
			return nil, fmt.Errorf("%w: encoder takes %v, stream is %v",
				av.ErrEncoderMismatch, encoder.SampleKind(), cfg.SampleKind)
		}
		frameEncoder = fe
	}

	voice, err := av.NewLocalVoiceAudio[T](name, cfg, frameEncoder, opts...)
	if err != nil {
		return nil, err
	}
	return voice, nil
}

// CreateDummyVoice creates a voice that accepts a source and does nothing.
func (f *VoiceFactory) CreateDummyVoice(name string, config *audio.StreamConfig) interfaces.ILocalVoiceAudio {
	cfg := f.resolve(config)

	logrus.WithFields(logrus.Fields{
		"function": "CreateDummyVoice",
		"voice":    name,
	}).Info("Creating dummy voice")

	return av.NewLocalVoiceAudioDummy(name, cfg)
}

// CreateSimulatedSource creates a synthetic capture source matching config's
// capture side. Push sources run a simulated native backend behind a fresh
// handle table; pull sources are paced by the wall clock. durationMs bounds
// pull sources and is ignored for push sources.
func (f *VoiceFactory) CreateSimulatedSource(config *audio.StreamConfig, mode SourceMode, signal testing.Signal, durationMs int) (interfaces.IAudioDesc, error) {
	cfg := f.resolve(config)

	logrus.WithFields(logrus.Fields{
		"function":      "CreateSimulatedSource",
		"mode":          mode.String(),
		"signal":        signal.Kind.String(),
		"sampling_rate": cfg.SourceSamplingRate,
		"channels":      cfg.Channels,
	}).Info("Creating simulated source")

	switch cfg.SampleKind {
	case audio.SampleFloat:
		return createSimulatedSource[float32](cfg, mode, signal, durationMs)
	case audio.SampleShort:
		return createSimulatedSource[int16](cfg, mode, signal, durationMs)
	default:
		return nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedSampleKind, cfg.SampleKind)
	}
}

func createSimulatedSource[T audio.Sample](cfg audio.StreamConfig, mode SourceMode, signal testing.Signal, durationMs int) (interfaces.IAudioDesc, error) {
	if mode == SourcePull {
		reader, err := testing.NewSimulatedReader[T](testing.ReaderConfig{
			Signal:       signal,
			SamplingRate: cfg.SourceSamplingRate,
			Channels:     cfg.Channels,
			DurationMs:   durationMs,
		})
		if err != nil {
			return nil, err
		}
		return reader, nil
	}

	table := real.NewHandleTable[T]()
	backend, err := testing.NewSimulatedBackend(table, testing.BackendConfig{Signal: signal})
	if err != nil {
		return nil, err
	}
	return real.NewNativePusher[T](table, backend, cfg.SourceSamplingRate, cfg.Channels), nil
}

// CreatePCMSource creates a pull source reading raw little-endian PCM of
// config's sample type from r.
func (f *VoiceFactory) CreatePCMSource(config *audio.StreamConfig, r io.Reader) (interfaces.IAudioDesc, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", av.ErrSourceInvalid)
	}
	cfg := f.resolve(config)

	switch cfg.SampleKind {
	case audio.SampleFloat:
		return real.NewPCMReader[float32](r, cfg.SourceSamplingRate, cfg.Channels), nil
	case audio.SampleShort:
		return real.NewPCMReader[int16](r, cfg.SourceSamplingRate, cfg.Channels), nil
	default:
		return nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedSampleKind, cfg.SampleKind)
	}
}

// GetCurrentConfig returns a copy of the current default configuration.
func (f *VoiceFactory) GetCurrentConfig() *audio.StreamConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cfg := *f.defaultConfig
	return &cfg
}

// UpdateConfig validates config and makes it the factory default.
func (f *VoiceFactory) UpdateConfig(config *audio.StreamConfig) error {
	if config == nil {
		return ErrNilConfig
	}
	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "UpdateConfig",
			"error":    err.Error(),
		}).Warn("Rejected factory configuration")
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":          "UpdateConfig",
		"old_sampling_rate": f.defaultConfig.SamplingRate,
		"new_sampling_rate": config.SamplingRate,
		"old_sample_kind":   f.defaultConfig.SampleKind.String(),
		"new_sample_kind":   config.SampleKind.String(),
	}).Info("Updating factory configuration")

	cfg := *config
	f.defaultConfig = &cfg
	return nil
}
