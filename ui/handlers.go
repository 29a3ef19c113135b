package ui

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"

	"gorla/app"
	"gorla/domain/core"
	"gorla/domain/election"
	"gorla/internal/engine"
)

type createAuditRequest struct {
	Ballots     int            `json:"ballots" binding:"required"`
	Tallies     map[string]int `json:"tallies" binding:"required"`
	Winners     []string       `json:"winners" binding:"required"`
	Type        string         `json:"type" binding:"required"`
	Winner      string         `json:"winner"`
	Loser       string         `json:"loser"`
	Engine      string         `json:"engine" binding:"required"`
	Alpha       float64        `json:"alpha" binding:"required"`
	Delta       float64        `json:"delta"`
	MaxFraction float64        `json:"max_fraction" binding:"required"`
}

type executeRoundRequest struct {
	Size          int `json:"size" binding:"required"`
	WinnerBallots int `json:"winner_ballots"`
	LoserBallots  int `json:"loser_ballots"`
}

// statusFor maps domain errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case core.IsInvalidContest(err), errors.Is(err, core.ErrInvalidAuditParams), core.IsInvalidRound(err):
		return http.StatusBadRequest
	case core.IsUnattainable(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) handleCreateAudit(c *gin.Context) {
	var req createAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctype, err := election.ParseContestType(req.Type)
	if err != nil {
		abortWith(c, err)
		return
	}
	contest, err := election.New(req.Ballots, req.Tallies, req.Winners, ctype)
	if err != nil {
		abortWith(c, err)
		return
	}
	tag, err := engine.ParseTag(req.Engine)
	if err != nil {
		abortWith(c, err)
		return
	}
	delta := req.Delta
	if tag == engine.TagAthena && delta == 0 {
		delta = 1
	}
	id, err := s.workbench.CreateAudit(app.AuditRequest{
		Contest:     contest,
		Winner:      req.Winner,
		Loser:       req.Loser,
		Engine:      tag,
		Alpha:       req.Alpha,
		Delta:       delta,
		MaxFraction: req.MaxFraction,
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	s.logger.Info("created audit %s (%s)", id, tag)
	c.JSON(http.StatusCreated, gin.H{"id": id.String()})
}

func (s *Server) auditID(c *gin.Context) (core.AuditID, bool) {
	id, err := core.ParseAuditID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

func (s *Server) handleGetAudit(c *gin.Context) {
	id, ok := s.auditID(c)
	if !ok {
		return
	}
	rec, err := s.workbench.Record(id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleExecuteRound(c *gin.Context) {
	id, ok := s.auditID(c)
	if !ok {
		return
	}
	var req executeRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dec, err := s.workbench.ExecuteRound(c.Request.Context(), id, req.Size, req.WinnerBallots, req.LoserBallots)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, dec)
}

func (s *Server) handleRecommend(c *gin.Context) {
	id, ok := s.auditID(c)
	if !ok {
		return
	}
	target, err := strconv.ParseFloat(c.DefaultQuery("target", "0.9"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target must be a number"})
		return
	}
	rec, err := s.workbench.Recommend(id, target)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleForceStop(c *gin.Context) {
	id, ok := s.auditID(c)
	if !ok {
		return
	}
	if err := s.workbench.ForceStop(c.Request.Context(), id); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReport(c *gin.Context) {
	id, ok := s.auditID(c)
	if !ok {
		return
	}
	md, err := s.workbench.Report(id)
	if err != nil {
		abortWith(c, err)
		return
	}
	html := markdown.ToHTML([]byte(md), nil, nil)
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *Server) handleExport(c *gin.Context) {
	id, ok := s.auditID(c)
	if !ok {
		return
	}
	path, err := s.workbench.Export(id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}
