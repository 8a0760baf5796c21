// Package audio provides the outgoing audio processing stages for toxvoice.
//
// This file defines the stage contract shared by every processor and the
// chain that applies stages to a frame in a fixed order.
package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Processor is one stage of the outgoing pipeline.
//
// Process consumes a frame and may mutate its samples or annotations in place.
// A returned error is fatal for the pipeline that owns the stage. Stages are
// driven by a single goroutine at a time and need no locking for their
// per-frame state.
type Processor[T Sample] interface {
	// Process applies the stage to one frame
	Process(frame *Frame[T]) error

	// GetName returns a human-readable name for the stage
	GetName() string

	// Close releases any resources used by the stage
	Close() error
}

// ProcessorChain applies processors sequentially in the order they were added.
type ProcessorChain[T Sample] struct {
	processors []Processor[T]
}

// NewProcessorChain creates an empty processor chain.
func NewProcessorChain[T Sample]() *ProcessorChain[T] {
	return &ProcessorChain[T]{
		processors: make([]Processor[T], 0),
	}
}

// AddProcessor appends processors to the end of the chain.
func (c *ProcessorChain[T]) AddProcessor(processors ...Processor[T]) {
	for _, p := range processors {
		logrus.WithFields(logrus.Fields{
			"function":       "ProcessorChain.AddProcessor",
			"processor_name": p.GetName(),
			"position":       len(c.processors),
		}).Debug("Adding processor to chain")

		c.processors = append(c.processors, p)
	}
}

// Process runs the frame through every processor in order. If a processor
// returns an error, processing stops and the error is returned with the
// processor's position and name.
func (c *ProcessorChain[T]) Process(frame *Frame[T]) error {
	for i, p := range c.processors {
		if err := p.Process(frame); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":        "ProcessorChain.Process",
				"processor_index": i,
				"processor_name":  p.GetName(),
				"frame_seq":       frame.Seq,
				"error":           err.Error(),
			}).Error("Processor failed")
			return fmt.Errorf("processor %d (%s) failed: %w", i, p.GetName(), err)
		}
	}
	return nil
}

// GetProcessorCount returns the number of processors in the chain.
func (c *ProcessorChain[T]) GetProcessorCount() int {
	return len(c.processors)
}

// GetProcessorNames returns the names of all processors in chain order.
func (c *ProcessorChain[T]) GetProcessorNames() []string {
	names := make([]string, len(c.processors))
	for i, p := range c.processors {
		names[i] = p.GetName()
	}
	return names
}

// Clear closes and removes every processor.
func (c *ProcessorChain[T]) Clear() error {
	var errs []error

	for i, p := range c.processors {
		if err := p.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":        "ProcessorChain.Clear",
				"processor_index": i,
				"processor_name":  p.GetName(),
				"error":           err.Error(),
			}).Error("Failed to close processor")
			errs = append(errs, fmt.Errorf("processor %d (%s) close failed: %w", i, p.GetName(), err))
		}
	}

	c.processors = c.processors[:0]

	if len(errs) > 0 {
		return fmt.Errorf("multiple close errors: %v", errs)
	}
	return nil
}

// Close releases all processor resources.
func (c *ProcessorChain[T]) Close() error {
	return c.Clear()
}
