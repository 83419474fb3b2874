package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/xxxsen/bagbot/internal/ai"
)

// fakeGenerator routes calls by the system prompt of the request.
type fakeGenerator struct {
	mu        sync.Mutex
	classify  string
	filter    string
	reply     []string
	streamErr error
	genErr    error
	requests  []*ai.ChatRequest
}

func (f *fakeGenerator) record(req *ai.ChatRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGenerator) Generate(ctx context.Context, req *ai.ChatRequest) (string, error) {
	f.record(req)
	if f.genErr != nil {
		return "", f.genErr
	}
	switch req.Messages[0].Content {
	case classifySystemPrompt:
		return f.classify, nil
	case filterSystemPrompt:
		return f.filter, nil
	}
	return "", errors.New("unexpected prompt")
}

func (f *fakeGenerator) Stream(ctx context.Context, req *ai.ChatRequest, fn ai.StreamFunc) error {
	f.record(req)
	for _, part := range f.reply {
		if err := fn(part); err != nil {
			return err
		}
	}
	return f.streamErr
}

func (f *fakeGenerator) lastHuman() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := f.requests[len(f.requests)-1]
	return req.Messages[len(req.Messages)-1].Content
}

// fakeEmbedder maps text onto a tiny vector whose first component reflects
// keyword overlap with "return".
type fakeEmbedder struct {
	mu    sync.Mutex
	dim   int
	err   error
	calls int
	texts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, f.dim)
	if strings.Contains(strings.ToLower(text), "return") {
		vec[0] = 1
	} else if f.dim > 1 {
		vec[1] = 1
	}
	return vec, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake"
}
