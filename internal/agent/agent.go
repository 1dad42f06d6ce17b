package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xenocryst1/collectsphere/internal/collector"
	"github.com/xenocryst1/collectsphere/internal/config"
	"github.com/xenocryst1/collectsphere/internal/model"
	"github.com/xenocryst1/collectsphere/internal/stream"
	"github.com/xenocryst1/collectsphere/internal/vsphere"
)

type Agent struct {
	cfg       config.Config
	logger    *slog.Logger
	scheduler *collector.Scheduler
	sink      stream.Sink
	health    *HealthStatus
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	tlsCfg, err := cfg.SinkTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("sink TLS config: %w", err)
	}
	sink, err := stream.NewSinkFromConfig(cfg, tlsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	health := NewHealthStatus()
	wrappedSink := &healthSink{sink: sink, health: health}

	connector := vsphere.NewConnector(logger, cfg.TLSSkipVerify)
	poller := collector.NewPoller(logger, connector, wrappedSink, cfg.Endpoints, cfg.PollInterval)
	scheduler := collector.NewScheduler(logger, poller, cfg.PollInterval)

	return &Agent{
		cfg:       cfg,
		logger:    logger,
		scheduler: scheduler,
		sink:      wrappedSink,
		health:    health,
	}, nil
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting collectsphere",
		"endpoints", len(a.cfg.Endpoints),
		"poll_interval", a.cfg.PollInterval,
		"sink_mode", a.cfg.SinkMode,
	)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Agent terminated by itself (runtime error/parent ctx canceled).
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
			// graceful stop completed in time
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	a.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("collectsphere stopped")
	return nil
}

func (a *Agent) shutdown(ctx context.Context) {
	if err := a.sink.Close(ctx); err != nil {
		a.logger.Warn("metrics sink close failed", "error", err)
	}
	a.health.SetSinkConnected(false)
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}

// healthSink tracks sink liveness alongside every dispatch.
type healthSink struct {
	sink   stream.Sink
	health *HealthStatus
}

func (s *healthSink) Send(ctx context.Context, sample model.Sample) error {
	if err := s.sink.Send(ctx, sample); err != nil {
		s.health.SetSinkConnected(false)
		return err
	}
	s.health.SetSinkConnected(true)
	s.health.MarkSample(time.Now().UTC())
	return nil
}

func (s *healthSink) Close(ctx context.Context) error {
	return s.sink.Close(ctx)
}
