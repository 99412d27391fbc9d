package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridoc/veridoc/internal/doctype"
)

// DocTypeHandler exposes document-type administration: prefixes, numbering
// classes and archival.
type DocTypeHandler struct {
	svc *doctype.Service
}

func NewDocTypeHandler(svc *doctype.Service) *DocTypeHandler {
	return &DocTypeHandler{svc: svc}
}

// Register routes under /document-types
func (h *DocTypeHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/document-types")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/archive", h.Archive)
	g.POST("/:id/restore", h.Restore)
}

func (h *DocTypeHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		Prefix      string `json:"prefix" binding:"required"`
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dt, err := h.svc.Create(c.Request.Context(), actor, req.Prefix, req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dt)
}

func (h *DocTypeHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	types, err := h.svc.List(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *DocTypeHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	dt, err := h.svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dt)
}

func (h *DocTypeHandler) Archive(c *gin.Context) {
	h.setActive(c, false)
}

func (h *DocTypeHandler) Restore(c *gin.Context) {
	h.setActive(c, true)
}

func (h *DocTypeHandler) setActive(c *gin.Context, active bool) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.svc.SetActive(c.Request.Context(), actor, c.Param("id"), active); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "active": active})
}
