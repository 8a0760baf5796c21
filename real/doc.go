// Package real provides production audio sources for toxvoice.
//
// Native capture APIs deliver audio on their own threads and can only carry
// an integer handle back into Go. [HandleTable] maps those handles to the
// callbacks installed by a voice, and [NativePusher] ties a handle to a
// [NativeBackend] so it can be bound to a voice as a push source:
//
//	table := real.NewHandleTable[int16]()
//	pusher := real.NewNativePusher[int16](table, backend, 48000, 1)
//	if err := voice.BindSource(pusher); err != nil {
//	    return err
//	}
//
//	// on the capture thread
//	table.Dispatch(handle, samples)
//
// Once a pusher is closed its handle is removed and late dispatches from the
// capture thread are dropped.
//
// [PCMReader] is a pull source over raw little-endian PCM, for example a
// recorded capture file:
//
//	f, _ := os.Open("capture.raw")
//	reader := real.NewPCMReader[int16](f, 16000, 1)
//	voice.BindSource(reader)
//	for voice.Service() == nil {
//	}
package real
