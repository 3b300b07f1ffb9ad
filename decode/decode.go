// Package decode is the sample-decode collaborator: turning a sample file
// on disk into interleaved PCM the sampler can play back, off the control
// thread.
package decode

import (
	"context"
	"errors"
	"fmt"
)

// ErrDecodeFailed wraps the underlying I/O or format error from a failed
// Convert call.
var ErrDecodeFailed = errors.New("decode: sample conversion failed")

// PCM is interleaved sample data at a fixed rate and channel count.
type PCM struct {
	SampleRate   int
	ChannelCount int
	Samples      []int16 // interleaved
}

// Decoder converts a sample file to PCM at targetSampleRate.
type Decoder interface {
	Convert(ctx context.Context, path string, targetSampleRate int) (PCM, error)
}

// wrapDecodeError joins the sentinel with the underlying cause so callers
// can match with errors.Is(err, ErrDecodeFailed) while still seeing the
// real reason in the message.
func wrapDecodeError(path string, cause error) error {
	return fmt.Errorf("%s: %w: %w", path, ErrDecodeFailed, cause)
}
