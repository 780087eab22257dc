package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/service"
)

// RosterHandler handles the autocomplete roster endpoints
type RosterHandler struct {
	rosters *service.RosterService
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(rosters *service.RosterService) *RosterHandler {
	return &RosterHandler{rosters: rosters}
}

// RosterEntryRequest is the payload for adding one roster name.
type RosterEntryRequest struct {
	Name string `json:"name" binding:"required"`
}

// RosterImportRequest is the payload for bulk roster imports.
type RosterImportRequest struct {
	Names []string `json:"names" binding:"required"`
}

// List returns a roster in display order
func (h *RosterHandler) List(c *gin.Context) {
	kind := models.RosterKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown roster"})
		return
	}

	c.JSON(http.StatusOK, h.rosters.List(c.Request.Context(), kind))
}

// Add appends one name to a roster
func (h *RosterHandler) Add(c *gin.Context) {
	kind := models.RosterKind(c.Param("kind"))

	var body RosterEntryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest), "details": err.Error()})
		return
	}

	entry, err := h.rosters.Add(c.Request.Context(), kind, body.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Import adds many names to a roster
func (h *RosterHandler) Import(c *gin.Context) {
	kind := models.RosterKind(c.Param("kind"))

	var body RosterImportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest), "details": err.Error()})
		return
	}

	result, err := h.rosters.Import(c.Request.Context(), kind, body.Names)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Remove deletes one name from a roster
func (h *RosterHandler) Remove(c *gin.Context) {
	kind := models.RosterKind(c.Param("kind"))

	if err := h.rosters.Remove(c.Request.Context(), kind, c.Param("name")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": c.Param("name")})
}

// RegisterRoutes registers the handler's routes
func (h *RosterHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/rosters/:kind", h.List)
	api.POST("/rosters/:kind", h.Add)
	api.POST("/rosters/:kind/import", h.Import)
	api.DELETE("/rosters/:kind/:name", h.Remove)
}
