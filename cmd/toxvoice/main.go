// Command toxvoice runs one or more outgoing voice pipelines from a YAML
// configuration, feeding them from simulated capture or raw PCM files and
// exposing their state as logs and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/toxvoice/av"
	"github.com/opd-ai/toxvoice/config"
	"github.com/opd-ai/toxvoice/factory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CLIConfig holds command-line flags.
type CLIConfig struct {
	configPath string
	duration   time.Duration
	logLevel   string
}

func parseCLIFlags() *CLIConfig {
	c := &CLIConfig{}
	flag.StringVar(&c.configPath, "config", "", "Path to YAML configuration (default: one simulated voice)")
	flag.DurationVar(&c.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	flag.StringVar(&c.logLevel, "log-level", "", "Override the configured log level")
	flag.Parse()
	return c
}

func main() {
	cli := parseCLIFlags()

	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cli.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.duration)
		defer cancel()
	}

	if err := run(ctx, cfg); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err.Error(),
		}).Error("toxvoice stopped with error")
		os.Exit(1)
	}
}

func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	if cli.configPath != "" {
		var err error
		if cfg, err = config.Load(cli.configPath); err != nil {
			return nil, err
		}
	}
	if cli.logLevel != "" {
		if _, err := logrus.ParseLevel(cli.logLevel); err != nil {
			return nil, fmt.Errorf("-log-level: %w", err)
		}
		cfg.Logging.Level = cli.logLevel
	}
	return cfg, nil
}

func configureLogging(cfg *config.Config) {
	logrus.SetLevel(cfg.LogLevel())
	logrus.SetFormatter(cfg.Formatter())
	logrus.SetOutput(os.Stderr)
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := av.NewMetrics(reg)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics, reg)
		defer shutdownMetricsServer(metricsServer)
	}

	f := factory.NewVoiceFactory()
	var voices []*runningVoice
	defer func() {
		for _, rv := range voices {
			rv.close()
		}
	}()
	for i := range cfg.Voices {
		rv, err := buildVoice(f, &cfg.Voices[i], av.WithMetrics(metrics))
		if err != nil {
			return fmt.Errorf("voice %q: %w", cfg.Voices[i].Name, err)
		}
		voices = append(voices, rv)
	}

	reporter := av.NewStatusReporter(cfg.StatusInterval)
	for _, rv := range voices {
		reporter.Track(rv.voice)
	}
	reporter.OnReport(logStatusReport)
	if err := reporter.Start(); err != nil {
		return err
	}
	defer reporter.Stop()

	logrus.WithFields(logrus.Fields{
		"function": "run",
		"voices":   len(voices),
		"metrics":  cfg.Metrics.Enabled,
	}).Info("toxvoice started")

	g, gctx := errgroup.WithContext(ctx)
	for _, rv := range voices {
		g.Go(func() error {
			return rv.run(gctx)
		})
	}
	err := g.Wait()

	logStatusReport(reporter.Snapshot())
	logrus.WithFields(logrus.Fields{
		"function": "run",
	}).Info("toxvoice stopping")

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func startMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"function": "startMetricsServer",
			"address":  cfg.Address,
			"path":     cfg.Path,
		}).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithFields(logrus.Fields{
				"function": "startMetricsServer",
				"address":  cfg.Address,
				"error":    err.Error(),
			}).Error("Metrics server failed")
		}
	}()
	return srv
}

func shutdownMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "shutdownMetricsServer",
			"error":    err.Error(),
		}).Warn("Metrics server shutdown failed")
	}
}

func logStatusReport(report av.StatusReport) {
	for _, v := range report.Voices {
		entry := logrus.WithFields(logrus.Fields{
			"voice":       v.Name,
			"avg":         fmt.Sprintf("%.4f", v.AvgAmp),
			"peak":        fmt.Sprintf("%.4f", v.PeakAmp),
			"active":      v.Detected,
			"threshold":   fmt.Sprintf("%.4f", v.Threshold),
			"calibrating": v.Calibrating,
			"frames":      v.Stats.FramesProcessed,
			"encoded":     v.Stats.FramesEncoded,
			"suppressed":  v.Stats.FramesSuppressed,
		})
		switch {
		case v.Err != "":
			entry.WithField("error", v.Err).Error("Voice status")
		case v.SourceError != "":
			entry.WithField("source_error", v.SourceError).Warn("Voice status")
		default:
			entry.Info("Voice status")
		}
	}
}
