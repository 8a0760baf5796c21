// Package testing provides simulated capture sources for exercising voice
// pipelines without audio hardware.
//
// # Overview
//
// A [Generator] synthesizes silence, a continuous tone, or tone bursts
// separated by silence, scaled to either sample representation. Two sources
// are built on it:
//
//   - [SimulatedBackend] implements real.NativeBackend. Each opened handle
//     gets a goroutine that dispatches generated bursts through a
//     real.HandleTable, mirroring a native capture thread. Pair it with
//     real.NativePusher to get a push source.
//
//   - [SimulatedReader] is a pull source that makes samples available at
//     real-time pace according to its clock, optionally ending with io.EOF
//     after a fixed duration.
//
// # Usage
//
//	table := real.NewHandleTable[int16]()
//	backend, _ := testing.NewSimulatedBackend(table, testing.BackendConfig{
//	    Signal: testing.Signal{Kind: testing.SignalBursts, Amplitude: 0.3,
//	        FrequencyHz: 440, BurstOnMs: 400, BurstOffMs: 600},
//	})
//	pusher := real.NewNativePusher[int16](table, backend, 48000, 1)
//	err := voice.BindSource(pusher)
//
// Tests that need deterministic pacing pass their own real.Sleeper to the
// backend or their own clock to the reader.
//
// # Thread Safety
//
// SimulatedBackend and SimulatedReader are safe for concurrent use. A
// Generator is not.
package testing
