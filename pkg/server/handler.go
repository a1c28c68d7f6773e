package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikeboe/research-assistant/pkg/literature"
	"github.com/mikeboe/research-assistant/pkg/research"
)

type Handler struct {
	Service *Service
	MCP     http.Handler
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s, MCP: NewMCPHandler(s)}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.POST("/solve-task/", h.solveTask)
	r.Any("/mcp", gin.WrapH(h.MCP))

	api := r.Group("/api")
	{
		api.POST("/solve-task", h.solveTask)
		api.GET("/workflow", h.workflow)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) solveTask(c *gin.Context) {
	var task research.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	res, err := h.Service.Advance(ctx, task)
	switch {
	case errors.Is(err, research.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, literature.ErrNoResults):
		h.Service.Logger.InfoContext(ctx, "No research papers found", "error", err)
		c.Status(http.StatusNoContent)
		return
	case err != nil:
		h.Service.Logger.ErrorContext(ctx, "Error in solve task", "error", err)
		c.JSON(http.StatusInternalServerError, UnexpectedErrorResult())
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) workflow(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Describe())
}
