package internal

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sketchroom/internal/storage"
)

// AdminHistory lists journal rows. *storage.Store satisfies it.
type AdminHistory interface {
	ListAdminActions(ctx context.Context, roomID string, limit int) ([]storage.AdminAction, error)
}

// Router builds the HTTP surface: the websocket endpoint at wsPath plus
// health, room inspection and metrics.
func (s *Server) Router(wsPath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	r.GET(wsPath, gin.WrapF(s.ServeWS))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics))

	rooms := r.Group("/rooms")
	{
		rooms.GET("/:id", s.handleRoom)
		rooms.GET("/:id/audit", s.handleAudit)
	}
	return r
}

func (s *Server) handleRoom(c *gin.Context) {
	info, ok := s.hub.Inspect(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleAudit(c *gin.Context) {
	history, ok := s.audit.journal.(AdminHistory)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit journal disabled"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	actions, err := history.ListAdminActions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}
