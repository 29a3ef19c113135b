// Package ui exposes the audit workbench over HTTP.
package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gorla/app"
	"gorla/internal"
)

// Server represents the web server for the audit workbench
type Server struct {
	router    *gin.Engine
	workbench *app.Workbench
	logger    *internal.Logger
}

// NewServer creates a server over a workbench
func NewServer(workbench *app.Workbench, logger *internal.Logger) *Server {
	s := &Server{
		router:    gin.New(),
		workbench: workbench,
		logger:    logger,
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	{
		api.POST("/audits", s.handleCreateAudit)
		api.GET("/audits/:id", s.handleGetAudit)
		api.POST("/audits/:id/rounds", s.handleExecuteRound)
		api.GET("/audits/:id/recommendation", s.handleRecommend)
		api.POST("/audits/:id/stop", s.handleForceStop)
		api.GET("/audits/:id/report", s.handleReport)
		api.POST("/audits/:id/export", s.handleExport)
	}
}

// Run starts the HTTP server on the given address
func (s *Server) Run(addr string) error {
	s.logger.Info("workbench listening on %s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}
