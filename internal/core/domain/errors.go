package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	// ErrNoChunkableText means no recognized field of the document held any
	// non-whitespace text. The document is unindexable, not broken.
	ErrNoChunkableText = errors.New("no chunkable text")

	// ErrEmbedding is a per-chunk failure; the chunk is excluded from the
	// vector channel, the search continues.
	ErrEmbedding = errors.New("embedding failure")

	// ErrChannelTimeout is a per-channel, per-chunk failure; the channel
	// contributes no candidates for that chunk.
	ErrChannelTimeout = errors.New("channel timeout")

	// ErrClassification marks an upstream invariant violation (negative or
	// NaN score) and is fatal for the request.
	ErrClassification = errors.New("classification invariant violation")

	// ErrCancelled propagates caller cancellation; no partial results are
	// ever returned alongside it.
	ErrCancelled = errors.New("search cancelled")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
