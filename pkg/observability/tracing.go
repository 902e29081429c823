// Package observability holds the tracing and metrics helpers shared by the
// persistence layer and the HTTP surface.
package observability

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps X-Ray subsegment capture behind a toggle so local runs and
// tests work without a tracing daemon. A nil Tracer is valid and disabled.
type Tracer struct {
	enabled bool
}

// NewTracer creates a Tracer. Pass false outside Lambda.
func NewTracer(enabled bool) *Tracer {
	return &Tracer{enabled: enabled}
}

// Capture runs fn inside a named subsegment when tracing is enabled, and
// directly otherwise.
func (t *Tracer) Capture(ctx context.Context, name string, fn func(context.Context) error) error {
	if t == nil || !t.enabled {
		return fn(ctx)
	}
	return xray.Capture(ctx, name, fn)
}

// AddAnnotation records an indexed key/value on the current segment.
func (t *Tracer) AddAnnotation(ctx context.Context, key string, value interface{}) {
	if t == nil || !t.enabled {
		return
	}
	_ = xray.AddAnnotation(ctx, key, value)
}
