package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
	"github.com/xiaot623/gogo/imagechat/internal/media"
	"github.com/xiaot623/gogo/imagechat/internal/session"
)

// DeltaFunc receives each fragment together with the answer accumulated so far.
// Returning an error aborts the turn.
type DeltaFunc func(fragment, partial string) error

// ChatResult is the outcome of a completed turn.
type ChatResult struct {
	Answer    string       `json:"final_message"`
	User      *domain.Turn `json:"user"`
	Assistant *domain.Turn `json:"assistant"`
	Fragments int          `json:"fragments"`
	LatencyMs int64        `json:"latency_ms"`
}

// SendMessage runs one chat turn: it streams a completion for prompt and the
// session's active image, reports progress through onDelta and, only when the
// stream completes, stores the prompt and the answer as two turns.
func (s *Service) SendMessage(ctx context.Context, sess *session.Session, prompt string, onDelta DeltaFunc) (*ChatResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}

	release, err := sess.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	client, err := sess.Client()
	if err != nil {
		return nil, err
	}

	req := s.completionRequest(prompt, sess.ActiveImage())
	startTime := time.Now()

	streamCtx, cancel := withTimeout(ctx, s.config.CompletionTimeout)
	defer cancel()

	var answer strings.Builder
	fragments := 0
	for fragment, err := range llm.Fragments(streamCtx, client, req) {
		if err != nil {
			log.Printf("WARN: completion failed for session %s: %v", sess.ID(), err)
			return nil, &domain.TransportError{Op: "completion", Err: err}
		}
		answer.WriteString(fragment)
		fragments++
		if onDelta != nil {
			if err := onDelta(fragment, answer.String()); err != nil {
				return nil, err
			}
		}
	}

	user, assistant, err := sess.AppendExchange(ctx, prompt, answer.String())
	if err != nil {
		return nil, err
	}

	latencyMs := time.Since(startTime).Milliseconds()
	log.Printf("Completion done for session %s: model=%s fragments=%d latency=%dms", sess.ID(), req.Model, fragments, latencyMs)

	return &ChatResult{
		Answer:    assistant.Content,
		User:      user,
		Assistant: assistant,
		Fragments: fragments,
		LatencyMs: latencyMs,
	}, nil
}

// completionRequest builds the request for one turn. Image turns carry a
// multimodal message and an output token cap; text turns carry plain text.
func (s *Service) completionRequest(prompt string, img *media.EncodedImage) *llm.ChatCompletionRequest {
	req := &llm.ChatCompletionRequest{
		Model:  s.config.ChatModel,
		Stream: true,
	}

	if img == nil {
		req.Messages = []llm.ChatMessage{{Role: string(domain.RoleUser), Content: llm.TextContent(prompt)}}
		return req
	}

	maxTokens := s.config.ImageMaxTokens
	req.MaxTokens = &maxTokens
	req.Messages = []llm.ChatMessage{{Role: string(domain.RoleUser), Content: llm.MultiContent(prompt, img.DataURI)}}
	return req
}
