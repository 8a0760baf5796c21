// Package audio provides the outgoing audio processing stages for toxvoice.
//
// The package implements every stage a captured frame passes through before
// it reaches an encoder: re-chunking, sample rate conversion, level metering,
// detector calibration and voice activity detection. All stages are generic
// over the two supported sample representations, float32 normalized to
// [-1, 1] and 16-bit fixed point.
//
// # Architecture Overview
//
// A voice drives its stages in this order:
//
//	Capture burst → Framer → pre-processors → [Resampler] → LevelMeter
//	              → Calibration → VoiceDetector → post-processors → encoder
//
// # Core Components
//
// ## Framer
//
// Re-chunks bursts of any size into frames of the source frame length:
//
//	framer, err := audio.NewFramer[int16](960, nil)
//	err = framer.Write(burst, func(frame []int16) error {
//	    return handle(frame)
//	})
//
// ## Resampler
//
// Frame-exact linear interpolation. The ratio must map one encoder frame onto
// a whole number of source samples:
//
//	resampler, err := audio.NewResampler[float32](audio.ResamplerConfig{
//	    InputRate:  48000,
//	    OutputRate: 16000,
//	    Channels:   1,
//	    FrameSize:  960,
//	}, nil)
//	// resampler.InputFrameSize() == 2880
//
// ## LevelMeter, Calibration and VoiceDetector
//
// The level meter writes each frame's normalized AvgAmp and PeakAmp. The
// calibration stage, when requested, averages PeakAmp over the requested
// duration and installs twice the mean as the detector threshold. The
// detector switches with hysteresis on PeakAmp and marks frames VoiceActive.
//
// ## ProcessorChain
//
// Custom stages implement Processor and are applied in order:
//
//	chain := audio.NewProcessorChain[int16]()
//	gain, _ := audio.NewGainEffect[int16](1.5)
//	chain.AddProcessor(gain)
//	err := chain.Process(frame)
//
// # Thread Safety
//
// Per-frame state of every stage is owned by the single goroutine delivering
// frames. Observers (levels, detector decision, thresholds, calibration
// phase) and setters are safe from any goroutine.
package audio
