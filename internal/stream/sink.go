// Package stream forwards flattened samples to the metrics sink. Delivery is
// fire and forget: the engine never waits for acknowledgments, and every sink
// is safe for concurrent producers (one goroutine per endpoint).
package stream

import (
	"context"

	"github.com/xenocryst1/collectsphere/internal/model"
)

type Sink interface {
	Send(ctx context.Context, sample model.Sample) error
	Close(ctx context.Context) error
}
