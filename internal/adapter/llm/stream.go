package llm

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a fragment sequence is ranged over twice.
var ErrStreamConsumed = errors.New("fragment stream already consumed")

var errStopped = errors.New("fragment consumer stopped")

// Fragments returns the streamed completion as a lazy, single-pass sequence of
// text fragments. The request is sent when iteration starts. A failure is
// yielded once as the final element with an empty fragment.
func Fragments(ctx context.Context, client LLMClient, req *ChatCompletionRequest) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}

		_, err := client.CreateChatCompletionStream(ctx, req, func(chunk *StreamChunk) error {
			text := chunk.DeltaText()
			if text == "" {
				return nil
			}
			if !yield(text, nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield("", err)
		}
	}
}
