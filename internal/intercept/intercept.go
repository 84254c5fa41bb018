// Package intercept is the byte-stream interception boundary: it buffers
// a response body to completion, applies a single injected transform, and
// emits either the transformed or the original bytes.
package intercept

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// StreamFilter is the contract the transport collaborator offers for one
// intercepted response. Chunks arrive in delivery order; Next returns
// io.EOF once every data event has been observed.
type StreamFilter interface {
	// Next returns the next body chunk, io.EOF at end of stream, or the
	// transport's error.
	Next(ctx context.Context) ([]byte, error)

	// Emit sends the full replacement body downstream. Called exactly
	// once per intercepted response.
	Emit(body []byte) error

	// Close terminates the intercept and releases transport resources.
	Close() error
}

// Transform rewrites a fully-buffered response body. Returning an error
// means the original body must be forwarded instead.
type Transform func(ctx context.Context, body []byte) ([]byte, error)

// Run drives one intercepted response: accumulate until end of stream,
// transform once, emit. Bodies are never incrementally transformed.
// A transform failure downgrades to pass-through of the original body;
// only a transport failure is returned to the caller.
func Run(ctx context.Context, filter StreamFilter, transform Transform, logger zerolog.Logger) error {
	defer filter.Close()

	var buf bytes.Buffer
	for {
		chunk, err := filter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		buf.Write(chunk)
	}

	body := buf.Bytes()
	replaced, err := transform(ctx, body)
	if err != nil {
		logger.Warn().Err(err).Int("size", len(body)).Msg("Transform failed, forwarding original body")
		return filter.Emit(body)
	}

	return filter.Emit(replaced)
}
