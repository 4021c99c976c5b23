// Package surface is the boundary to the process hosting the embedded
// browser view. The extraction core only ever sees serialized markup pulled
// through this interface.
package surface

import "context"

// MarkupSource yields the full serialized markup of a rendering surface. An
// empty string with a nil error means "no data yet" and is not a failure.
type MarkupSource interface {
	SerializedMarkup(ctx context.Context, surfaceID string) (string, error)
}

// SourceFunc adapts a function to the MarkupSource interface.
type SourceFunc func(ctx context.Context, surfaceID string) (string, error)

func (f SourceFunc) SerializedMarkup(ctx context.Context, surfaceID string) (string, error) {
	return f(ctx, surfaceID)
}
