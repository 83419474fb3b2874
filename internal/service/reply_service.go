package service

import (
	"context"

	"github.com/xxxsen/bagbot/internal/ai"
)

// StreamChunk carries either a reply fragment or the error that ended the
// stream.
type StreamChunk struct {
	Text string
	Err  error
}

type ReplyService struct {
	gen ai.IGenerator
}

func NewReplyService(gen ai.IGenerator) *ReplyService {
	return &ReplyService{gen: gen}
}

// Stream starts generation and returns the fragments in order. The channel
// is closed when generation ends; a failure is delivered as the last chunk.
// Cancelling ctx stops the producer.
func (s *ReplyService) Stream(ctx context.Context, input, history, data string) (<-chan StreamChunk, error) {
	req, err := buildChatRequest(replyPrompt, map[string]any{
		"data":    data,
		"history": history,
		"input":   input,
	})
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		err := s.gen.Stream(ctx, req, func(text string) error {
			select {
			case out <- StreamChunk{Text: text}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err == nil || ctx.Err() != nil {
			return
		}
		select {
		case out <- StreamChunk{Err: err}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}
