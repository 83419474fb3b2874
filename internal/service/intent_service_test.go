package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bagbot/internal/ai"
	"github.com/xxxsen/bagbot/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want model.Intent
	}{
		{raw: "POLICY", want: model.IntentPolicy},
		{raw: "  ORDER\n", want: model.IntentOrder},
		{raw: "\"RECOMMENDATION\".", want: model.IntentRecommendation},
		{raw: "NOT_RELEVANT", want: model.IntentNotRelevant},
		{raw: "policy", want: model.IntentUnknown},
		{raw: "SHIPPING", want: model.IntentUnknown},
		{raw: "", want: model.IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			gen := &fakeGenerator{classify: tt.raw}
			got, err := NewIntentService(gen).Classify(context.Background(), "q", "")
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_PromptCarriesInputAndHistory(t *testing.T) {
	gen := &fakeGenerator{classify: "ORDER"}
	_, err := NewIntentService(gen).Classify(context.Background(), "where is #5501", "0. user: hi")
	require.NoError(t, err)
	req := gen.requests[0]
	require.Len(t, req.Messages, 2)
	require.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	require.Equal(t, ai.RoleUser, req.Messages[1].Role)
	require.True(t, strings.Contains(req.Messages[1].Content, "User Question: where is #5501"))
	require.True(t, strings.Contains(req.Messages[1].Content, "Previous Conversations: 0. user: hi"))
	require.NotNil(t, req.Temperature)
	require.Equal(t, float32(0), *req.Temperature)
}

func TestClassify_ModelError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewIntentService(&fakeGenerator{genErr: boom}).Classify(context.Background(), "q", "")
	require.ErrorIs(t, err, boom)
}
