package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/metrics"
	"github.com/xxxsen/bagbot/internal/model"
	appErr "github.com/xxxsen/bagbot/internal/pkg/errors"
)

// ChatPlan is everything resolved before the reply starts streaming.
type ChatPlan struct {
	Input   string
	History string
	Intent  model.Intent
	Data    any
}

type ChatService struct {
	intents   *IntentService
	knowledge *KnowledgeService
	orders    *OrderService
	products  *ProductService
	replies   *ReplyService
	metrics   *metrics.Metrics
}

func NewChatService(intents *IntentService, knowledge *KnowledgeService, orders *OrderService,
	products *ProductService, replies *ReplyService, m *metrics.Metrics) *ChatService {
	return &ChatService{
		intents:   intents,
		knowledge: knowledge,
		orders:    orders,
		products:  products,
		replies:   replies,
		metrics:   m,
	}
}

// FormatHistory renders messages as "{index}. {role}: {text}" lines.
func FormatHistory(msgs []model.Message) string {
	lines := make([]string, 0, len(msgs))
	for i, msg := range msgs {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i, msg.Role, msg.Text))
	}
	return strings.Join(lines, "\n")
}

// SplitConversation treats the last message as the active query and the
// rest as history.
func SplitConversation(msgs []model.Message) (string, string, error) {
	if len(msgs) == 0 {
		return "", "", fmt.Errorf("empty conversation: %w", appErr.ErrInvalid)
	}
	return msgs[len(msgs)-1].Text, FormatHistory(msgs[:len(msgs)-1]), nil
}

func (s *ChatService) Prepare(ctx context.Context, msgs []model.Message) (*ChatPlan, error) {
	input, history, err := SplitConversation(msgs)
	if err != nil {
		return nil, err
	}
	intent, err := s.intents.Classify(ctx, input, history)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveIntent(intent.String())
	data, err := s.resolveData(ctx, intent, input)
	if err != nil {
		return nil, err
	}
	return &ChatPlan{Input: input, History: history, Intent: intent, Data: data}, nil
}

func (s *ChatService) resolveData(ctx context.Context, intent model.Intent, input string) (any, error) {
	switch intent {
	case model.IntentPolicy:
		texts, err := s.knowledge.Retrieve(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(texts) == 0 {
			return emptyKnowledgeMessage, nil
		}
		return texts, nil
	case model.IntentOrder:
		return s.orders.Lookup(ctx, input).Payload(), nil
	case model.IntentRecommendation:
		filter, err := s.products.ExtractFilter(ctx, input)
		if err != nil {
			return nil, err
		}
		return s.products.Search(ctx, filter), nil
	case model.IntentNotRelevant, model.IntentUnknown:
		return nil, nil
	default:
		return nil, fmt.Errorf("unhandled intent %s: %w", intent, appErr.ErrInternal)
	}
}

func (s *ChatService) Reply(ctx context.Context, plan *ChatPlan) (<-chan StreamChunk, error) {
	data, err := json.Marshal(plan.Data)
	if err != nil {
		return nil, fmt.Errorf("encode reply data: %w", err)
	}
	logutil.GetLogger(ctx).Info("generating reply",
		zap.String("input", plan.Input),
		zap.String("history", plan.History),
		zap.String("intent", plan.Intent.String()),
		zap.ByteString("data", data),
	)
	return s.replies.Stream(ctx, plan.Input, plan.History, string(data))
}

// Chat resolves the plan and starts the reply. Errors returned here happen
// before any fragment is produced.
func (s *ChatService) Chat(ctx context.Context, msgs []model.Message) (<-chan StreamChunk, error) {
	plan, err := s.Prepare(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return s.Reply(ctx, plan)
}
