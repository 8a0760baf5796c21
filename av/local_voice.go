package av

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/opd-ai/toxvoice/interfaces"
	"github.com/sirupsen/logrus"
)

// LocalVoiceAudio turns captured samples of type T into encoded frames.
//
// Captured bursts are re-chunked into source frames, run through the
// pre-processors, resampled to the encoder rate when the rates differ, level
// metered, offered to detector calibration, classified by the voice detector,
// run through the post-processors and finally handed to the encoder. When the
// detector is enabled, frames without voice skip the post-processors and the
// encoder; the built-in stages always run.
//
// Delivery (push callback or Service) and Close are serialized by a per-voice
// mutex; pull reads are serialized by a second lock and run outside it.
// Observers and calibration requests may be used from any goroutine.
type LocalVoiceAudio[T audio.Sample] struct {
	name    string
	config  audio.StreamConfig
	encoder interfaces.IFrameEncoder[T]
	factory audio.BufferFactory[T]
	metrics *Metrics
	vm      *voiceMetrics

	level       *audio.LevelMeter[T]
	calibration *audio.Calibration[T]
	detector    *audio.VoiceDetector[T]
	resampler   *audio.Resampler[T]

	readMu sync.Mutex // serializes Service calls and owns readBuf

	mu        sync.Mutex
	framer    *audio.Framer[T]
	frame     audio.Frame[T]
	preChain  *audio.ProcessorChain[T]
	builtin   *audio.ProcessorChain[T]
	postChain *audio.ProcessorChain[T]
	reader    interfaces.IAudioReader[T]
	readBuf   []T
	sourceErr bool // source failure already logged
	closed    bool

	source  atomic.Pointer[boundSource]
	failure atomic.Pointer[failure]

	samplesPushed    atomic.Uint64
	framesProcessed  atomic.Uint64
	framesEncoded    atomic.Uint64
	framesSuppressed atomic.Uint64
	calibrations     atomic.Uint64
}

type boundSource struct {
	desc interfaces.IAudioDesc
}

type failure struct {
	err error
}

// NewLocalVoiceAudio builds a voice for config feeding encoder.
//
// T must agree with config.SampleKind and with the encoder's sample kind;
// encoders that implement interfaces.IFrameShape must also agree on rate,
// frame size and channels. A nil encoder selects a PCM encoder that discards
// its packets.
func NewLocalVoiceAudio[T audio.Sample](name string, config audio.StreamConfig, encoder interfaces.IFrameEncoder[T], opts ...Option) (*LocalVoiceAudio[T], error) {
	logrus.WithFields(logrus.Fields{
		"function":             "NewLocalVoiceAudio",
		"voice":                name,
		"source_sampling_rate": config.SourceSamplingRate,
		"sampling_rate":        config.SamplingRate,
		"frame_size":           config.FrameSize,
		"channels":             config.Channels,
		"sample_kind":          config.SampleKind.String(),
	}).Info("Creating local voice")

	if kind := audio.KindOf[T](); config.SampleKind != kind {
		return nil, fmt.Errorf("%w: stream is %v, voice is instantiated for %v",
			audio.ErrUnsupportedSampleKind, config.SampleKind, kind)
	}
	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewLocalVoiceAudio",
			"voice":    name,
			"error":    err.Error(),
		}).Error("Stream configuration validation failed")
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	factory, err := resolveFactory[T](o.factory)
	if err != nil {
		return nil, err
	}

	if encoder == nil {
		pcm, err := audio.NewPCMEncoder[T](config.SamplingRate, config.FrameSize, config.Channels, nil)
		if err != nil {
			return nil, err
		}
		encoder = pcm
	}
	if err := checkEncoder(config, encoder); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewLocalVoiceAudio",
			"voice":    name,
			"error":    err.Error(),
		}).Error("Encoder validation failed")
		return nil, err
	}

	v := &LocalVoiceAudio[T]{
		name:      name,
		config:    config,
		encoder:   encoder,
		factory:   factory,
		metrics:   o.metrics,
		vm:        o.metrics.forVoice(name),
		preChain:  audio.NewProcessorChain[T](),
		builtin:   audio.NewProcessorChain[T](),
		postChain: audio.NewProcessorChain[T](),
	}

	if err := v.buildStages(o); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewLocalVoiceAudio",
		"voice":     name,
		"stages":    v.builtin.GetProcessorNames(),
		"threshold": v.detector.Threshold(),
	}).Info("Local voice created")

	return v, nil
}

// resolveFactory checks that a factory supplied through options allocates T.
func resolveFactory[T audio.Sample](f any) (audio.BufferFactory[T], error) {
	if f == nil {
		return audio.MakeFactory[T]{}, nil
	}
	typed, ok := f.(audio.BufferFactory[T])
	if !ok {
		return nil, fmt.Errorf("%w: buffer factory %T does not allocate %v samples",
			ErrInvalidOption, f, audio.KindOf[T]())
	}
	return typed, nil
}

// checkEncoder verifies the encoder's sample kind and, where exposed, its
// frame shape against the stream.
func checkEncoder[T audio.Sample](config audio.StreamConfig, encoder interfaces.IFrameEncoder[T]) error {
	if kind := encoder.SampleKind(); kind != config.SampleKind {
		return fmt.Errorf("%w: encoder takes %v samples, stream is %v", ErrEncoderMismatch, kind, config.SampleKind)
	}
	shape, ok := encoder.(interfaces.IFrameShape)
	if !ok {
		return nil
	}
	if shape.SamplingRate() != config.SamplingRate || shape.FrameSize() != config.FrameSize || shape.Channels() != config.Channels {
		return fmt.Errorf("%w: encoder is %d Hz/%d samples/%d ch, stream is %d Hz/%d samples/%d ch",
			ErrEncoderMismatch,
			shape.SamplingRate(), shape.FrameSize(), shape.Channels(),
			config.SamplingRate, config.FrameSize, config.Channels)
	}
	return nil
}

// buildStages creates the framer and the built-in stage chain.
func (v *LocalVoiceAudio[T]) buildStages(o options) error {
	cfg := v.config

	framer, err := audio.NewFramer[T](cfg.SourceFrameSize()*cfg.Channels, v.factory)
	if err != nil {
		return err
	}
	v.framer = framer

	if o.gain != 1.0 {
		gain, err := audio.NewGainEffect[T](o.gain)
		if err != nil {
			return err
		}
		v.preChain.AddProcessor(gain)
	}

	if cfg.NeedsResampling() {
		logrus.WithFields(logrus.Fields{
			"function":    "LocalVoiceAudio.buildStages",
			"voice":       v.name,
			"input_rate":  cfg.SourceSamplingRate,
			"output_rate": cfg.SamplingRate,
		}).Warn("Source and encoder sampling rates differ, resampling")

		v.resampler, err = audio.NewResampler[T](audio.ResamplerConfig{
			InputRate:  cfg.SourceSamplingRate,
			OutputRate: cfg.SamplingRate,
			Channels:   cfg.Channels,
			FrameSize:  cfg.FrameSize,
		}, v.factory)
		if err != nil {
			return err
		}
		v.builtin.AddProcessor(v.resampler)
	}

	v.level, err = audio.NewLevelMeter[T](cfg.SamplingRate, cfg.FrameSize, o.levelWindowMs)
	if err != nil {
		return err
	}
	v.detector, err = audio.NewVoiceDetector[T](cfg.SamplingRate, cfg.FrameSize, o.detector)
	if err != nil {
		return err
	}
	v.calibration, err = audio.NewCalibration[T](cfg.SamplingRate, cfg.FrameSize, v.detector, o.detector)
	if err != nil {
		return err
	}
	v.detector.WatchCalibration(v.calibration.Calibrating)
	v.calibration.OnComplete(func(threshold float32) {
		v.calibrations.Add(1)
		v.vm.calibrated(threshold)
	})

	v.builtin.AddProcessor(v.level, v.calibration, v.detector)
	return nil
}

// AddPreProcessor appends processors that run on source-rate frames before
// resampling.
func (v *LocalVoiceAudio[T]) AddPreProcessor(processors ...audio.Processor[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.preChain.AddProcessor(processors...)
}

// AddPostProcessor appends processors that run on encoder-rate frames after
// voice detection. They must keep the frame length.
func (v *LocalVoiceAudio[T]) AddPostProcessor(processors ...audio.Processor[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.postChain.AddProcessor(processors...)
}

// BindSource attaches a push or pull source. A pusher is wired to
// PushSamples; a reader is drained by Service.
func (v *LocalVoiceAudio[T]) BindSource(source interfaces.IAudioDesc) error {
	if source == nil {
		return fmt.Errorf("%w: nil source", ErrSourceInvalid)
	}
	if msg := source.Error(); msg != "" {
		logrus.WithFields(logrus.Fields{
			"function": "LocalVoiceAudio.BindSource",
			"voice":    v.name,
			"error":    msg,
		}).Error("Audio source reported an error")
		return fmt.Errorf("%w: %s", ErrSourceInvalid, msg)
	}
	if source.SamplingRate() != v.config.SourceSamplingRate || source.Channels() != v.config.Channels {
		return fmt.Errorf("%w: source is %d Hz/%d ch, stream expects %d Hz/%d ch",
			ErrSourceMismatch, source.SamplingRate(), source.Channels(),
			v.config.SourceSamplingRate, v.config.Channels)
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrVoiceClosed
	}
	if v.source.Load() != nil {
		v.mu.Unlock()
		return ErrSourceAlreadyBound
	}

	var pusher interfaces.IAudioPusher[T]
	switch s := source.(type) {
	case interfaces.IAudioPusher[T]:
		pusher = s
	case interfaces.IAudioReader[T]:
		v.reader = s
		v.readBuf = make([]T, v.framer.FrameLen())
	default:
		v.mu.Unlock()
		return fmt.Errorf("%w: %T is not a %v pusher or reader", ErrUnsupportedSource, source, v.config.SampleKind)
	}
	v.source.Store(&boundSource{desc: source})
	v.mu.Unlock()

	mode := "pull"
	if pusher != nil {
		mode = "push"
		pusher.SetCallback(v.PushSamples, v.factory)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "LocalVoiceAudio.BindSource",
		"voice":         v.name,
		"mode":          mode,
		"sampling_rate": source.SamplingRate(),
		"channels":      source.Channels(),
	}).Info("Audio source bound")
	return nil
}

// PushSamples delivers a burst of interleaved samples. It is the callback
// installed on push sources and may be called directly. Pushes after Close
// or after a fatal error are ignored.
func (v *LocalVoiceAudio[T]) PushSamples(samples []T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deliver(samples)
}

// MaxServiceReads bounds the reads a single Service call makes.
const MaxServiceReads = 50

// Service reads the bound pull source until it returns a short read or
// MaxServiceReads frames have been read. Reads happen outside the delivery
// lock, so Close is never held up by a blocked reader.
// It returns io.EOF once the source is exhausted and the pipeline error if
// processing failed.
func (v *LocalVoiceAudio[T]) Service() error {
	v.readMu.Lock()
	defer v.readMu.Unlock()

	for reads := 0; reads < MaxServiceReads; reads++ {
		reader, buf, err := v.pullSource()
		if err != nil || reader == nil {
			return err
		}

		n, err := reader.Read(buf)
		if n > 0 {
			v.mu.Lock()
			v.deliver(buf[:n])
			v.mu.Unlock()
			if ferr := v.Err(); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("read %s source: %w", v.name, err)
		}
		if n < len(buf) {
			return nil
		}
	}
	return nil
}

// pullSource returns the bound reader and its read buffer. A nil reader with
// a nil error means delivery stopped because the source failed.
func (v *LocalVoiceAudio[T]) pullSource() (interfaces.IAudioReader[T], []T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, nil, ErrVoiceClosed
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}
	if v.reader == nil {
		return nil, nil, ErrNoPullSource
	}
	if v.sourceFailed() {
		return nil, nil, nil
	}
	return v.reader, v.readBuf, nil
}

// deliver frames samples and processes every completed frame. Callers hold mu.
func (v *LocalVoiceAudio[T]) deliver(samples []T) {
	if v.closed || v.failure.Load() != nil || len(samples) == 0 {
		return
	}
	if v.sourceFailed() {
		return
	}

	v.samplesPushed.Add(uint64(len(samples)))
	v.vm.pushed(len(samples))

	if err := v.framer.Write(samples, v.processFrame); err != nil {
		v.fail(err)
	}
}

// sourceFailed reports whether the bound source has an error, logging it
// the first time it is seen. Callers hold mu.
func (v *LocalVoiceAudio[T]) sourceFailed() bool {
	bs := v.source.Load()
	if bs == nil {
		return false
	}
	msg := bs.desc.Error()
	if msg == "" {
		return false
	}
	if !v.sourceErr {
		v.sourceErr = true
		logrus.WithFields(logrus.Fields{
			"function": "LocalVoiceAudio.deliver",
			"voice":    v.name,
			"error":    msg,
		}).Warn("Audio source failed, delivery stopped")
	}
	return true
}

// processFrame runs one source frame through the whole pipeline.
func (v *LocalVoiceAudio[T]) processFrame(samples []T) error {
	f := &v.frame
	f.Reset(samples)

	if err := v.preChain.Process(f); err != nil {
		return fmt.Errorf("pre-processing: %w", err)
	}
	if err := v.builtin.Process(f); err != nil {
		return err
	}
	v.framesProcessed.Add(1)
	v.vm.frame(v.level.CurrentAvgAmp(), v.level.CurrentPeakAmp(), v.detector.Threshold(), f.VoiceActive)

	if v.detector.Enabled() && !f.VoiceActive {
		v.framesSuppressed.Add(1)
		v.vm.suppressedFrame()
		return nil
	}

	if err := v.postChain.Process(f); err != nil {
		return fmt.Errorf("post-processing: %w", err)
	}
	if err := v.encoder.Input(f.Samples); err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	v.framesEncoded.Add(1)
	v.vm.encodedFrame()
	return nil
}

// fail marks the voice failed. Callers hold mu.
func (v *LocalVoiceAudio[T]) fail(err error) {
	wrapped := fmt.Errorf("%w: %w", ErrPipelineFailed, err)
	if !v.failure.CompareAndSwap(nil, &failure{err: wrapped}) {
		return
	}
	v.vm.failed()

	logrus.WithFields(logrus.Fields{
		"function":  "LocalVoiceAudio.processFrame",
		"voice":     v.name,
		"frame_seq": v.frame.Seq,
		"error":     err.Error(),
	}).Error("Voice pipeline failed, further samples are ignored")
}

// Name returns the voice name.
func (v *LocalVoiceAudio[T]) Name() string {
	return v.name
}

// StreamConfig returns the stream shape.
func (v *LocalVoiceAudio[T]) StreamConfig() audio.StreamConfig {
	return v.config
}

// VoiceDetector returns the voice detector.
func (v *LocalVoiceAudio[T]) VoiceDetector() interfaces.IVoiceDetector {
	return v.detector
}

// LevelMeter returns the level meter.
func (v *LocalVoiceAudio[T]) LevelMeter() interfaces.ILevelMeter {
	return v.level
}

// VoiceDetectorCalibrate requests a detector calibration of durationMs.
func (v *LocalVoiceAudio[T]) VoiceDetectorCalibrate(durationMs int) error {
	return v.calibration.Calibrate(durationMs)
}

// VoiceDetectorCalibrating reports whether calibration is pending or running.
func (v *LocalVoiceAudio[T]) VoiceDetectorCalibrating() bool {
	return v.calibration.Calibrating()
}

// Stats returns a snapshot of the voice counters.
func (v *LocalVoiceAudio[T]) Stats() interfaces.VoiceStats {
	return interfaces.VoiceStats{
		SamplesPushed:    v.samplesPushed.Load(),
		FramesProcessed:  v.framesProcessed.Load(),
		FramesEncoded:    v.framesEncoded.Load(),
		FramesSuppressed: v.framesSuppressed.Load(),
		Calibrations:     v.calibrations.Load(),
	}
}

// Err returns the error that stopped the pipeline, or nil.
func (v *LocalVoiceAudio[T]) Err() error {
	if f := v.failure.Load(); f != nil {
		return f.err
	}
	return nil
}

// SourceError returns the bound source's error message, or "".
func (v *LocalVoiceAudio[T]) SourceError() string {
	if bs := v.source.Load(); bs != nil {
		return bs.desc.Error()
	}
	return ""
}

// Close waits for in-flight delivery, releases the encoder and all stages,
// then closes the bound source. Closing twice is a no-op.
func (v *LocalVoiceAudio[T]) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true

	var errs []error
	if err := v.encoder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close encoder: %w", err))
	}
	for _, chain := range []*audio.ProcessorChain[T]{v.preChain, v.builtin, v.postChain} {
		if err := chain.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	v.framer.Reset()
	v.mu.Unlock()

	if bs := v.source.Load(); bs != nil {
		if err := bs.desc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
	}
	v.metrics.removeVoice(v.name)

	stats := v.Stats()
	logrus.WithFields(logrus.Fields{
		"function":          "LocalVoiceAudio.Close",
		"voice":             v.name,
		"frames_processed":  stats.FramesProcessed,
		"frames_encoded":    stats.FramesEncoded,
		"frames_suppressed": stats.FramesSuppressed,
	}).Info("Local voice closed")

	return errors.Join(errs...)
}
