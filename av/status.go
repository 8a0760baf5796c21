// Package av provides periodic status reporting for outgoing voices.
//
// This file collects level, detector and counter snapshots from every tracked
// voice at a fixed interval and hands them to a report callback, which the
// CLI uses for its status log lines.
package av

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opd-ai/toxvoice/interfaces"
	"github.com/sirupsen/logrus"
)

// VoiceStatus is a point-in-time view of one voice.
type VoiceStatus struct {
	Name        string
	AvgAmp      float32
	PeakAmp     float32
	Detected    bool
	Threshold   float32
	Calibrating bool
	Stats       interfaces.VoiceStats
	Err         string
	SourceError string
}

// StatusReport contains the status of every tracked voice.
type StatusReport struct {
	Voices    []VoiceStatus // sorted by name
	Timestamp time.Time
	Interval  time.Duration
}

// StatusReporter periodically reports the status of a set of voices.
//
// Example usage:
//
//	reporter := NewStatusReporter(5 * time.Second)
//	reporter.Track(voice)
//	reporter.OnReport(func(report StatusReport) {
//	    for _, v := range report.Voices {
//	        log.Printf("%s peak=%.3f voice=%v", v.Name, v.PeakAmp, v.Detected)
//	    }
//	})
//	reporter.Start()
//	defer reporter.Stop()
type StatusReporter struct {
	reportInterval time.Duration

	mu       sync.RWMutex
	running  bool
	voices   map[string]interfaces.ILocalVoiceAudio
	callback func(report StatusReport)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStatusReporter creates a reporter firing every reportInterval.
func NewStatusReporter(reportInterval time.Duration) *StatusReporter {
	if reportInterval <= 0 {
		reportInterval = 5 * time.Second
	}

	logrus.WithFields(logrus.Fields{
		"function":        "NewStatusReporter",
		"report_interval": reportInterval,
	}).Info("Creating status reporter")

	return &StatusReporter{
		reportInterval: reportInterval,
		voices:         make(map[string]interfaces.ILocalVoiceAudio),
	}
}

// Track adds a voice to the report, replacing any voice of the same name.
func (sr *StatusReporter) Track(voice interfaces.ILocalVoiceAudio) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.voices[voice.Name()] = voice

	logrus.WithFields(logrus.Fields{
		"function": "StatusReporter.Track",
		"voice":    voice.Name(),
	}).Debug("Tracking voice")
}

// Untrack removes a voice from the report.
func (sr *StatusReporter) Untrack(name string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	delete(sr.voices, name)
}

// OnReport registers the callback invoked with every report.
func (sr *StatusReporter) OnReport(callback func(report StatusReport)) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.callback = callback
}

// Start begins periodic reporting.
func (sr *StatusReporter) Start() error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.running {
		return ErrAlreadyRunning
	}
	sr.running = true
	sr.ctx, sr.cancel = context.WithCancel(context.Background())
	go sr.reportLoop(sr.ctx)

	logrus.WithFields(logrus.Fields{
		"function": "StatusReporter.Start",
		"voices":   len(sr.voices),
	}).Info("Status reporter started")
	return nil
}

// Stop halts periodic reporting. Stopping a stopped reporter is a no-op.
func (sr *StatusReporter) Stop() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.running {
		return
	}
	sr.running = false
	sr.cancel()

	logrus.WithFields(logrus.Fields{
		"function": "StatusReporter.Stop",
	}).Info("Status reporter stopped")
}

// IsRunning returns whether the reporter is active.
func (sr *StatusReporter) IsRunning() bool {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return sr.running
}

// Snapshot builds a report immediately.
func (sr *StatusReporter) Snapshot() StatusReport {
	sr.mu.RLock()
	voices := make([]interfaces.ILocalVoiceAudio, 0, len(sr.voices))
	for _, v := range sr.voices {
		voices = append(voices, v)
	}
	sr.mu.RUnlock()

	report := StatusReport{
		Voices:    make([]VoiceStatus, 0, len(voices)),
		Timestamp: time.Now(),
		Interval:  sr.reportInterval,
	}
	for _, v := range voices {
		report.Voices = append(report.Voices, statusOf(v))
	}
	sort.Slice(report.Voices, func(i, j int) bool {
		return report.Voices[i].Name < report.Voices[j].Name
	})
	return report
}

func statusOf(v interfaces.ILocalVoiceAudio) VoiceStatus {
	level := v.LevelMeter()
	detector := v.VoiceDetector()
	s := VoiceStatus{
		Name:        v.Name(),
		AvgAmp:      level.CurrentAvgAmp(),
		PeakAmp:     level.CurrentPeakAmp(),
		Detected:    detector.Detected(),
		Threshold:   detector.Threshold(),
		Calibrating: v.VoiceDetectorCalibrating(),
		Stats:       v.Stats(),
		SourceError: v.SourceError(),
	}
	if err := v.Err(); err != nil {
		s.Err = err.Error()
	}
	return s
}

// reportLoop runs the periodic reporting.
func (sr *StatusReporter) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(sr.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.WithFields(logrus.Fields{
				"function": "StatusReporter.reportLoop",
			}).Debug("Report loop stopped")
			return
		case <-ticker.C:
			sr.mu.RLock()
			callback := sr.callback
			sr.mu.RUnlock()
			if callback != nil {
				callback(sr.Snapshot())
			}
		}
	}
}
