package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// mountStatic serves the compiled frontend from the configured directory.
// Unknown /api paths always answer with a JSON 404.
func (s *Server) mountStatic() {
	apiNotFound := func(c *gin.Context) bool {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return true
		}
		return false
	}

	indexPath := s.staticIndex()
	if indexPath == "" {
		s.engine.NoRoute(func(c *gin.Context) {
			if !apiNotFound(c) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			}
		})
		return
	}

	s.engine.GET("/", func(c *gin.Context) {
		c.File(indexPath)
	})
	s.engine.NoRoute(func(c *gin.Context) {
		if !apiNotFound(c) {
			c.File(indexPath)
		}
	})

	assetsDir := filepath.Join(s.staticDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		s.engine.StaticFS("/assets", gin.Dir(assetsDir, true))
	}

	favicon := filepath.Join(s.staticDir, "favicon.ico")
	if _, err := os.Stat(favicon); err == nil {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}

// staticIndex returns the frontend entry point, or "" in API only mode.
func (s *Server) staticIndex() string {
	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return ""
	}
	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", zap.String("path", s.staticDir), zap.Error(err))
		return ""
	}
	indexPath := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", zap.String("path", indexPath), zap.Error(err))
		return ""
	}
	return indexPath
}
