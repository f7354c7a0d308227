package http

import (
	"net/http"
	"time"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Plain-text bodies returned on failure
const (
	bodyInvalidKey   = "Invalid key"
	bodyInvalidValue = "Invalid value"
	bodyServerError  = "Server error"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	status := s.health.Check(c.Request.Context())
	store := "ok"
	code := http.StatusOK
	overall := "healthy"
	if !status.Healthy {
		store = "unreachable"
		code = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(code, gin.H{
		"status":    overall,
		"timestamp": status.CheckedAt,
		"checks": gin.H{
			"store": store,
		},
	})
}

// handleData returns every counter
func (s *Server) handleData(c *gin.Context) {
	counters, err := s.counters.Snapshot(c.Request.Context())
	if err != nil {
		s.respondError(c, "failed to retrieve counters", err)
		return
	}

	c.JSON(http.StatusOK, counters)
}

// handleUpdate adds :value to the counter :key and returns every counter
func (s *Server) handleUpdate(c *gin.Context) {
	key := c.Param("key")
	value := c.Param("value")

	counters, err := s.counters.Update(c.Request.Context(), key, value)
	if err != nil {
		s.respondError(c, "failed to update counter", err,
			zap.String("key", key),
			zap.String("value", value))
		return
	}

	c.JSON(http.StatusOK, counters)
}

// handleStatic serves files from the public directory
func (s *Server) handleStatic(c *gin.Context) {
	if s.static == nil || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.String(http.StatusNotFound, "Not found")
		return
	}

	s.static.ServeHTTP(c.Writer, c.Request)
}

// respondError maps an error kind to its status code and body
func (s *Server) respondError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	kind := domain.KindOf(err)
	fields = append(fields,
		zap.String("kind", kind.String()),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))

	switch kind {
	case domain.KindInvalidKey:
		s.logger.Debug("rejected request", fields...)
		c.String(http.StatusBadRequest, bodyInvalidKey)
	case domain.KindInvalidValue:
		s.logger.Debug("rejected request", fields...)
		c.String(http.StatusBadRequest, bodyInvalidValue)
	default:
		s.logger.Error(msg, fields...)
		c.String(http.StatusInternalServerError, bodyServerError)
	}
}
