package stream

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenocryst1/collectsphere/internal/config"
	"github.com/xenocryst1/collectsphere/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSinkFromConfigModes(t *testing.T) {
	cases := []struct {
		mode config.SinkMode
		want any
	}{
		{config.SinkModeGRPC, &GRPCClient{}},
		{config.SinkModeWebSocket, &WebSocketClient{}},
		{config.SinkModeLog, &LogSink{}},
	}
	for _, tc := range cases {
		sink, err := NewSinkFromConfig(config.Config{SinkMode: tc.mode}, nil, testLogger())
		require.NoError(t, err, "mode %s", tc.mode)
		assert.IsType(t, tc.want, sink, "mode %s", tc.mode)
	}
}

func TestNewSinkFromConfigUnknownMode(t *testing.T) {
	_, err := NewSinkFromConfig(config.Config{SinkMode: "smoke-signal"}, nil, testLogger())
	assert.ErrorContains(t, err, "unsupported sink mode")
}

func TestLogSinkSend(t *testing.T) {
	sink := NewLogSink(testLogger())
	err := sink.Send(context.Background(), model.Sample{Timestamp: 1, Key: "c.HS.h.cpu.all.average.usage.perc", Value: 42})
	assert.NoError(t, err)
	assert.NoError(t, sink.Close(context.Background()))
}
