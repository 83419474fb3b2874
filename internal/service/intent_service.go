package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/ai"
	"github.com/xxxsen/bagbot/internal/model"
)

type IntentService struct {
	gen ai.IGenerator
}

func NewIntentService(gen ai.IGenerator) *IntentService {
	return &IntentService{gen: gen}
}

// Classify asks the model for a single label. Labels outside the known set
// come back as IntentUnknown, not as an error.
func (s *IntentService) Classify(ctx context.Context, input, history string) (model.Intent, error) {
	req, err := buildChatRequest(classifyPrompt, map[string]any{"input": input, "history": history})
	if err != nil {
		return model.IntentUnknown, err
	}
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		return model.IntentUnknown, fmt.Errorf("classify intent: %w", err)
	}
	intent := model.ParseIntent(normalizeLabel(raw))
	logger := logutil.GetLogger(ctx)
	if intent == model.IntentUnknown {
		logger.Warn("unrecognized intent label", zap.String("raw", raw))
	}
	logger.Info("intent classified", zap.String("intent", intent.String()))
	return intent, nil
}

func normalizeLabel(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "\"'`*.,:;!")
}
