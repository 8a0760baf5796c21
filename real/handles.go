package real

import (
	"sync"

	"github.com/opd-ai/toxvoice/av/audio"
	"github.com/sirupsen/logrus"
)

// HandleTable maps integer handles, the only thing a native capture callback
// can carry, to the Go callbacks that consume their samples.
//
// Dispatch may be called concurrently from native capture threads. Dispatch
// to a removed or unknown handle is ignored.
type HandleTable[T audio.Sample] struct {
	mu      sync.RWMutex
	next    int
	entries map[int]*handleEntry[T]
}

type handleEntry[T audio.Sample] struct {
	mu       sync.RWMutex
	callback func([]T)
}

// NewHandleTable creates an empty handle table.
func NewHandleTable[T audio.Sample]() *HandleTable[T] {
	return &HandleTable[T]{
		next:    1,
		entries: make(map[int]*handleEntry[T]),
	}
}

// Register allocates a new handle with no callback attached.
func (t *HandleTable[T]) Register() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	handle := t.next
	t.next++
	t.entries[handle] = &handleEntry[T]{}
	return handle
}

// SetCallback attaches callback to handle. It reports false if the handle is
// not registered.
func (t *HandleTable[T]) SetCallback(handle int, callback func([]T)) bool {
	t.mu.RLock()
	e, ok := t.entries[handle]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	e.callback = callback
	e.mu.Unlock()
	return true
}

// Remove forgets handle. Later dispatches to it are ignored.
func (t *HandleTable[T]) Remove(handle int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, handle)
}

// Dispatch delivers samples to the callback registered for handle and
// reports whether a callback ran.
func (t *HandleTable[T]) Dispatch(handle int, samples []T) bool {
	t.mu.RLock()
	e, ok := t.entries[handle]
	t.mu.RUnlock()
	if !ok {
		if logrus.IsLevelEnabled(logrus.TraceLevel) {
			logrus.WithFields(logrus.Fields{
				"function": "HandleTable.Dispatch",
				"handle":   handle,
			}).Trace("Dispatch to unknown handle ignored")
		}
		return false
	}

	e.mu.RLock()
	callback := e.callback
	e.mu.RUnlock()
	if callback == nil {
		return false
	}
	callback(samples)
	return true
}

// Len returns the number of registered handles.
func (t *HandleTable[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
