package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleHome serves the landing page
func (s *Server) handleHome(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, "home.html", gin.H{
		"Title": "Titanic survival",
		"Page":  "home",
		"Blurb": s.homeBlurb,
	})
}

// handleHealth reports whether the warehouse answers
func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.health(ctx); err != nil {
		s.logger.Warn("health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
