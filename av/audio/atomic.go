package audio

import (
	"math"
	"sync/atomic"
)

// atomicFloat32 publishes a float32 written by the processing goroutine to
// readers on other goroutines.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (a *atomicFloat32) Load() float32 {
	return math.Float32frombits(a.bits.Load())
}

func (a *atomicFloat32) Store(v float32) {
	a.bits.Store(math.Float32bits(v))
}
