package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *openAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := createOpenAIFactory(map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	return p.(*openAIProvider)
}

func writeDelta(w http.ResponseWriter, content, finish string) {
	reason := "null"
	if finish != "" {
		reason = fmt.Sprintf("%q", finish)
	}
	fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":%s}]}\n\n", content, reason)
}

type chatBody struct {
	Model       string  `json:"model"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestOpenAIStream_ForwardsDeltasInOrder(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var body chatBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, body.Stream)
		require.Equal(t, "m", body.Model)
		require.Equal(t, "system", body.Messages[0].Role)
		require.Equal(t, "sys", body.Messages[0].Content)
		require.Equal(t, "user", body.Messages[1].Role)
		w.Header().Set("Content-Type", "text/event-stream")
		writeDelta(w, "Hel", "")
		writeDelta(w, "lo", "")
		writeDelta(w, " there", "stop")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var got []string
	err := p.Stream(context.Background(), "m", &ChatRequest{Messages: []ChatMessage{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	}}, func(text string) error {
		got = append(got, text)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Hel", "lo", " there"}, got)
}

func TestOpenAIStream_InBandErrorFailsStream(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeDelta(w, "Hel", "")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"upstream overloaded\"}}\n\n")
	})
	var got []string
	err := p.Stream(context.Background(), "m", &ChatRequest{}, func(text string) error {
		got = append(got, text)
		return nil
	})
	require.ErrorIs(t, err, ErrStreamIncomplete)
	require.Equal(t, []string{"Hel"}, got)
}

func TestOpenAIStream_TruncatedBodyFailsStream(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		writeDelta(w, "partial", "")
	})
	err := p.Stream(context.Background(), "m", &ChatRequest{}, func(string) error { return nil })
	require.ErrorIs(t, err, ErrStreamIncomplete)
}

func TestOpenAIStream_CallbackErrorStops(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		writeDelta(w, "a", "")
		writeDelta(w, "b", "stop")
	})
	stop := errors.New("stop")
	calls := 0
	err := p.Stream(context.Background(), "m", &ChatRequest{}, func(string) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}

func TestOpenAIGenerate_NonOKStatus(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := p.Generate(context.Background(), "m", &ChatRequest{})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "502"))
}

func TestOpenAIGenerate_TrimsContentAndSendsTemperature(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var body chatBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.False(t, body.Stream)
		require.Zero(t, body.Temperature)
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"  ORDER \n"},"finish_reason":"stop"}]}`)
	})
	out, err := p.Generate(context.Background(), "m", &ChatRequest{
		Messages:    []ChatMessage{{Role: RoleUser, Content: "where is #5501"}},
		Temperature: new(float32),
	})
	require.NoError(t, err)
	require.Equal(t, "ORDER", out)
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "text-embedding-3-small", body.Model)
		require.Equal(t, []string{"return policy"}, body.Input)
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.5,1]}]}`)
	}))
	t.Cleanup(srv.Close)
	p, err := createOpenAIEmbedFactory(map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	vec, err := p.Embed(context.Background(), "text-embedding-3-small", "return policy", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, 1}, vec)
}

func TestOpenAI_MissingKeyIsUnavailable(t *testing.T) {
	p, err := createOpenAIFactory(map[string]interface{}{})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "m", &ChatRequest{})
	require.ErrorIs(t, err, ErrUnavailable)

	e, err := createOpenAIEmbedFactory(map[string]interface{}{})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "m", "x", "")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider("nope", nil)
	require.Error(t, err)
	_, err = NewEmbedProvider("", nil)
	require.Error(t, err)
}
