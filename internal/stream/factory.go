package stream

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/xenocryst1/collectsphere/internal/config"
)

func NewSinkFromConfig(cfg config.Config, tlsCfg *tls.Config, logger *slog.Logger) (Sink, error) {
	switch cfg.SinkMode {
	case config.SinkModeGRPC:
		return NewGRPCClient(cfg.SinkGRPCAddr, tlsCfg, cfg.SinkToken, cfg.SinkMethod, logger), nil
	case config.SinkModeWebSocket:
		return NewWebSocketClient(cfg.SinkWSURL, cfg.SinkToken, tlsCfg, cfg.SinkWSWriteTimeout, cfg.SinkWSPingInterval, logger), nil
	case config.SinkModeLog:
		return NewLogSink(logger), nil
	}
	return nil, fmt.Errorf("unsupported sink mode %q", cfg.SinkMode)
}
