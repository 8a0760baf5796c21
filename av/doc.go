// Package av implements outgoing voice pipelines for toxvoice.
//
// A [LocalVoiceAudio] accepts captured audio from a push or pull source,
// frames it, resamples it to the encoder rate, measures its level, runs
// detector calibration and voice activity detection, and hands every frame
// (or, with the detector enabled, every voiced frame) to an encoder sink.
//
// # Creating a Voice
//
//	voice, err := av.NewLocalVoiceAudio[int16]("mic", audio.StreamConfig{
//	    SourceSamplingRate: 48000,
//	    SamplingRate:       16000,
//	    FrameSize:          320, // 20 ms
//	    Channels:           1,
//	    SampleKind:         audio.SampleShort,
//	}, encoder, av.WithMetrics(metrics))
//	if err != nil {
//	    return err
//	}
//	defer voice.Close()
//
// The factory package builds voices from a runtime sample kind and returns
// the sample-type independent [interfaces.ILocalVoiceAudio].
//
// # Sources
//
// Push sources deliver from their own goroutine through the callback
// installed by BindSource; pull sources are drained by calling Service:
//
//	if err := voice.BindSource(reader); err != nil {
//	    return err
//	}
//	for {
//	    if err := voice.Service(); err != nil {
//	        break
//	    }
//	    time.Sleep(10 * time.Millisecond)
//	}
//
// # Voice Detection
//
// The detector threshold can be calibrated against background noise:
//
//	voice.VoiceDetectorCalibrate(2000)
//	for voice.VoiceDetectorCalibrating() {
//	    time.Sleep(100 * time.Millisecond)
//	}
//	voice.VoiceDetector().SetEnabled(true)
//
// # Failure Handling
//
// Any stage or encoder error stops the voice: Err returns an error wrapping
// [ErrPipelineFailed] and later samples are ignored. A source whose Error
// method turns non-empty simply stops being consumed.
//
// # Monitoring
//
// [Metrics] exports per-voice Prometheus counters and gauges, and
// [StatusReporter] produces periodic snapshots of every tracked voice.
package av
