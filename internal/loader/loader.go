package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/filestore"
	"github.com/xxxsen/bagbot/internal/model"
)

// Load reads the policy set stored under key and decodes it by extension.
func Load(ctx context.Context, store filestore.Store, key string) ([]model.PolicyDocument, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open policy source %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read policy source %s: %w", key, err)
	}
	docs, err := Parse(key, data)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx)
	for _, doc := range docs {
		logger.Debug("policy loaded", zap.String("id", doc.ID), zap.String("title", doc.Title))
	}
	logger.Info("policy source loaded", zap.String("source", key), zap.String("store", store.Type()), zap.Int("count", len(docs)))
	return docs, nil
}

func Parse(name string, data []byte) ([]model.PolicyDocument, error) {
	var (
		docs []model.PolicyDocument
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		docs, err = ParseJSON(data)
	case ".md", ".markdown":
		docs = ParseMarkdown(data)
	default:
		return nil, fmt.Errorf("unsupported policy source format: %s", name)
	}
	if err != nil {
		return nil, err
	}
	if err := validate(docs); err != nil {
		return nil, fmt.Errorf("invalid policy source %s: %w", name, err)
	}
	return docs, nil
}

func ParseJSON(data []byte) ([]model.PolicyDocument, error) {
	var docs []model.PolicyDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode policies: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = nil
		if docs[i].ID == "" {
			docs[i].ID = slugify(docs[i].Title)
		}
	}
	return docs, nil
}

func validate(docs []model.PolicyDocument) error {
	seen := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Title) == "" || strings.TrimSpace(doc.Text) == "" {
			return fmt.Errorf("document %d: title and text are required", i)
		}
		if doc.ID == "" {
			return fmt.Errorf("document %d: id is required", i)
		}
		if _, ok := seen[doc.ID]; ok {
			return fmt.Errorf("document %d: duplicate id %s", i, doc.ID)
		}
		seen[doc.ID] = struct{}{}
	}
	return nil
}

func slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
