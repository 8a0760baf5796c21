// Package limits provides centralized stream shape constants and validation functions
// for the outgoing voice pipeline. This package ensures consistent enforcement across
// the framer, resampler, encoders and configuration loader.
//
// # Stream Shape Limits
//
//   - MinSamplingRate / MaxSamplingRate (8 kHz .. 192 kHz): accepted on both the
//     capture side and the encoder side of the resampler.
//
//   - MaxChannels (2): voices are mono or interleaved stereo.
//
//   - MaxFrameSize (5760 samples per channel): 120 ms at 48 kHz, the longest
//     frame an Opus encoder accepts.
//
//   - MaxCalibrationMs (60 s): upper bound for one voice detector calibration.
//
// # Validation Functions
//
// Each validation function returns a wrapped sentinel error with context:
//
//	if err := limits.ValidateSamplingRate(rate); err != nil {
//	    // errors.Is(err, limits.ErrSamplingRate)
//	}
package limits
