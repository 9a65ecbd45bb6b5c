package ui

import (
	"bytes"
	"net/http"

	"survivaldash/internal/errors"

	"github.com/gin-gonic/gin"
)

// renderTemplate executes a template with the given data
func (s *Server) renderTemplate(c *gin.Context, status int, templateName string, data gin.H) {
	// Render to a buffer first so a template error never sends a partial page.
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.Error("template error for %s: %v (keys %v)", templateName, err, mapKeys(data))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Template rendering failed"})
		return
	}

	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderError shows err on the page template, with the status its code maps to.
func (s *Server) renderError(c *gin.Context, templateName string, data gin.H, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	data["Error"] = err.Error()
	s.renderTemplate(c, status, templateName, data)
}

func mapKeys(m gin.H) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
