package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/ai"
	"github.com/xxxsen/bagbot/internal/model"
)

type ProductService struct {
	gen ai.IGenerator
}

func NewProductService(gen ai.IGenerator) *ProductService {
	return &ProductService{gen: gen}
}

// DefaultFilter is used whenever the model output cannot be parsed. It has
// no price_min key.
func DefaultFilter() *model.ProductFilter {
	return &model.ProductFilter{Keywords: []string{}}
}

// ExtractFilter asks the model for a filter object. Unparseable output
// falls back to DefaultFilter; only the model call itself can fail.
func (s *ProductService) ExtractFilter(ctx context.Context, input string) (*model.ProductFilter, error) {
	req, err := buildChatRequest(filterPrompt, map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extract product filter: %w", err)
	}
	filter, err := parseFilter(raw)
	if err != nil {
		logutil.GetLogger(ctx).Warn("invalid filter json, use default", zap.String("raw", raw), zap.Error(err))
		return DefaultFilter(), nil
	}
	return filter, nil
}

func parseFilter(raw string) (*model.ProductFilter, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("filter is not a json object")
	}
	filter := &model.ProductFilter{}
	if err := json.Unmarshal([]byte(raw), filter); err != nil {
		return nil, err
	}
	if filter.Keywords == nil {
		filter.Keywords = []string{}
	}
	return filter, nil
}

// Search is a placeholder catalog; the filter is only logged.
func (s *ProductService) Search(ctx context.Context, filter *model.ProductFilter) []model.Product {
	data, _ := json.Marshal(filter)
	logutil.GetLogger(ctx).Info("mock product search", zap.ByteString("filter", data))
	return []model.Product{
		{Name: "ASUS Gaming Laptop", Price: 1150},
		{Name: "ASUS TUF Book", Price: 980},
	}
}
