package stream

import (
	"context"
	"log/slog"

	"github.com/xenocryst1/collectsphere/internal/model"
)

// LogSink writes samples to the agent log. Useful for dry runs and for
// inspecting key composition against a live endpoint.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, sample model.Sample) error {
	s.logger.Info("sample", "ts", sample.Timestamp, "key", sample.Key, "value", sample.Value)
	return nil
}

func (s *LogSink) Close(context.Context) error {
	return nil
}
