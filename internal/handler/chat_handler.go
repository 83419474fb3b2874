package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/metrics"
	"github.com/xxxsen/bagbot/internal/model"
	"github.com/xxxsen/bagbot/internal/pkg/response"
	"github.com/xxxsen/bagbot/internal/service"
)

type ChatHandler struct {
	chat    *service.ChatService
	metrics *metrics.Metrics
}

func NewChatHandler(chat *service.ChatService, m *metrics.Metrics) *ChatHandler {
	return &ChatHandler{chat: chat, metrics: m}
}

type chatRequest struct {
	Messages []model.Message `json:"messages"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		response.Text(c, http.StatusBadRequest, "Missing messages")
		return
	}
	ctx := c.Request.Context()
	logger := requestLogger(c)
	logger.Info("chat request", zap.Any("messages", req.Messages))

	chunks, err := h.chat.Chat(ctx, req.Messages)
	if err != nil {
		logger.Error("prepare reply failed", zap.Error(err))
		response.Text(c, http.StatusInternalServerError, "internal error")
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Transfer-Encoding", "chunked")
	header.Set("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	written := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("client went away", zap.Int("chunks", written))
			return
		case chunk, ok := <-chunks:
			if !ok {
				logger.Info("reply finished", zap.Int("chunks", written))
				return
			}
			if chunk.Err != nil {
				logger.Error("reply stream failed", zap.Int("chunks", written), zap.Error(chunk.Err))
				return
			}
			if _, err := c.Writer.WriteString(chunk.Text); err != nil {
				logger.Warn("write reply chunk failed", zap.Error(err))
				return
			}
			c.Writer.Flush()
			written++
			h.metrics.ObserveChunk()
		}
	}
}
