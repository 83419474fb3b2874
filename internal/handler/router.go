package handler

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Chat      *ChatHandler
	Data      *DataHandler
	Knowledge *KnowledgeHandler
	Metrics   http.Handler
}

// RegisterRoutes mounts the chat stream at the root and the JSON endpoints
// under /api. Only /api is compressed; the chat body must reach the client
// fragment by fragment.
func RegisterRoutes(root *gin.RouterGroup, deps RouterDeps) {
	root.POST("/", deps.Chat.Chat)

	api := root.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.POST("/data", deps.Data.Create)
	if deps.Knowledge != nil {
		api.GET("/knowledge/search", deps.Knowledge.Search)
	}

	if deps.Metrics != nil {
		root.GET("/metrics", gin.WrapH(deps.Metrics))
	}
}
