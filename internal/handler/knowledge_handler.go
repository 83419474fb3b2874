package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/bagbot/internal/pkg/errcode"
	"github.com/xxxsen/bagbot/internal/pkg/response"
	"github.com/xxxsen/bagbot/internal/service"
)

const maxSearchK = 20

type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
}

func NewKnowledgeHandler(knowledge *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

func (h *KnowledgeHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "q is required")
		return
	}
	k := 0
	if raw := c.Query("k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.Error(c, errcode.ErrInvalid, "invalid k")
			return
		}
		k = min(v, maxSearchK)
	}
	matches, err := h.knowledge.Search(c.Request.Context(), query, k)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"query": query, "matches": matches})
}
