package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type DataHandler struct{}

func NewDataHandler() *DataHandler {
	return &DataHandler{}
}

type dataRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Create echoes the payload back. It has no side effects.
func (h *DataHandler) Create(c *gin.Context) {
	var req dataRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or message"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"received": gin.H{"name": req.Name, "message": req.Message},
	})
}
