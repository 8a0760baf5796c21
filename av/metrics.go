// Package av provides Prometheus instrumentation for outgoing voices.
//
// One Metrics instance is shared by every voice of a process; each voice
// curries its own label values once at construction so the per-frame path
// only touches pre-resolved children.
package av

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for outgoing voices.
type Metrics struct {
	SamplesPushed    *prometheus.CounterVec
	FramesProcessed  *prometheus.CounterVec
	FramesEncoded    *prometheus.CounterVec
	FramesSuppressed *prometheus.CounterVec
	PipelineFailures *prometheus.CounterVec
	Calibrations     *prometheus.CounterVec

	AvgLevel          *prometheus.GaugeVec
	PeakLevel         *prometheus.GaugeVec
	DetectorThreshold *prometheus.GaugeVec
	VoiceActive       *prometheus.GaugeVec
}

// NewMetrics creates the voice metrics and registers them with reg. A nil
// reg registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	labels := []string{"voice"}

	return &Metrics{
		SamplesPushed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxvoice_samples_pushed_total",
			Help: "Total number of samples accepted from audio sources",
		}, labels),
		FramesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxvoice_frames_processed_total",
			Help: "Total number of frames that ran through level metering and voice detection",
		}, labels),
		FramesEncoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxvoice_frames_encoded_total",
			Help: "Total number of frames handed to the encoder",
		}, labels),
		FramesSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxvoice_frames_suppressed_total",
			Help: "Total number of frames withheld because no voice was detected",
		}, labels),
		PipelineFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxvoice_pipeline_failures_total",
			Help: "Total number of voices stopped by a fatal processing error",
		}, labels),
		Calibrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toxvoice_calibrations_total",
			Help: "Total number of completed voice detector calibrations",
		}, labels),
		AvgLevel: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toxvoice_level_avg",
			Help: "Smoothed average amplitude, normalized to [0, 1]",
		}, labels),
		PeakLevel: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toxvoice_level_peak",
			Help: "Smoothed peak amplitude, normalized to [0, 1]",
		}, labels),
		DetectorThreshold: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toxvoice_detector_threshold",
			Help: "Current voice detector threshold",
		}, labels),
		VoiceActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toxvoice_voice_active",
			Help: "1 while the voice detector reports voice, 0 otherwise",
		}, labels),
	}
}

// voiceMetrics holds the children of Metrics for one voice. A nil
// *voiceMetrics records nothing.
type voiceMetrics struct {
	samples, processed, encoded, suppressed, failures, calibrations prometheus.Counter
	avg, peak, threshold, active                                   prometheus.Gauge
}

func (m *Metrics) forVoice(name string) *voiceMetrics {
	if m == nil {
		return nil
	}
	return &voiceMetrics{
		samples:      m.SamplesPushed.WithLabelValues(name),
		processed:    m.FramesProcessed.WithLabelValues(name),
		encoded:      m.FramesEncoded.WithLabelValues(name),
		suppressed:   m.FramesSuppressed.WithLabelValues(name),
		failures:     m.PipelineFailures.WithLabelValues(name),
		calibrations: m.Calibrations.WithLabelValues(name),
		avg:          m.AvgLevel.WithLabelValues(name),
		peak:         m.PeakLevel.WithLabelValues(name),
		threshold:    m.DetectorThreshold.WithLabelValues(name),
		active:       m.VoiceActive.WithLabelValues(name),
	}
}

// removeVoice drops the gauges of a closed voice. Counters are kept so rates
// stay continuous across scrapes.
func (m *Metrics) removeVoice(name string) {
	if m == nil {
		return
	}
	m.AvgLevel.DeleteLabelValues(name)
	m.PeakLevel.DeleteLabelValues(name)
	m.DetectorThreshold.DeleteLabelValues(name)
	m.VoiceActive.DeleteLabelValues(name)
}

func (vm *voiceMetrics) pushed(n int) {
	if vm != nil {
		vm.samples.Add(float64(n))
	}
}

func (vm *voiceMetrics) frame(avg, peak, threshold float32, active bool) {
	if vm == nil {
		return
	}
	vm.processed.Inc()
	vm.avg.Set(float64(avg))
	vm.peak.Set(float64(peak))
	vm.threshold.Set(float64(threshold))
	if active {
		vm.active.Set(1)
	} else {
		vm.active.Set(0)
	}
}

func (vm *voiceMetrics) encodedFrame() {
	if vm != nil {
		vm.encoded.Inc()
	}
}

func (vm *voiceMetrics) suppressedFrame() {
	if vm != nil {
		vm.suppressed.Inc()
	}
}

func (vm *voiceMetrics) failed() {
	if vm != nil {
		vm.failures.Inc()
	}
}

func (vm *voiceMetrics) calibrated(threshold float32) {
	if vm != nil {
		vm.calibrations.Inc()
		vm.threshold.Set(float64(threshold))
	}
}
