package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/models"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/service"
	"github.com/notyourromanticboyfriend/warehouse-apps-v2/internal/workflow"
)

const dateLayout = "2006-01-02"

// RequestHandler handles refill request HTTP endpoints
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{
		requests: requests,
	}
}

// TransitionRequest is the payload for applying a workflow trigger.
type TransitionRequest struct {
	Trigger string `json:"trigger" binding:"required"`
	Name    string `json:"name"`
}

// List returns every request, newest first
func (h *RequestHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.requests.List(c.Request.Context()))
}

// Active returns the unresolved requests the floor still acts on
func (h *RequestHandler) Active(c *gin.Context) {
	c.JSON(http.StatusOK, h.requests.ActiveQueue(c.Request.Context()))
}

// History returns the filtered request history
func (h *RequestHandler) History(c *gin.Context) {
	filter, err := h.historyFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.requests.History(c.Request.Context(), *filter))
}

// ExportHistory streams the filtered history as a CSV download
func (h *RequestHandler) ExportHistory(c *gin.Context) {
	filter, err := h.historyFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("refill-history-%s.csv", time.Now().Format(dateLayout))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	if err := h.requests.Export(c.Request.Context(), *filter, c.Writer); err != nil {
		log.Error().Err(err).Msg("Failed to stream CSV export")
	}
}

// Stats returns per-status counts
func (h *RequestHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.requests.Stats(c.Request.Context()))
}

// Create stores a new refill request
func (h *RequestHandler) Create(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest), "details": err.Error()})
		return
	}

	req, err := h.requests.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// ImportRequest is the bulk-create payload.
type ImportRequest struct {
	Requests []service.CreateRequestInput `json:"requests" binding:"required"`
}

// Import creates many requests from one payload
func (h *RequestHandler) Import(c *gin.Context) {
	var body ImportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest), "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.requests.Import(c.Request.Context(), body.Requests))
}

// Update applies a sparse field update
func (h *RequestHandler) Update(c *gin.Context) {
	id, err := requestID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest), "details": err.Error()})
		return
	}

	req, err := h.requests.UpdateFields(c.Request.Context(), id, fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Transition applies a workflow trigger to a request
func (h *RequestHandler) Transition(c *gin.Context) {
	id, err := requestID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var body TransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest), "details": err.Error()})
		return
	}

	req, err := h.requests.Transition(c.Request.Context(), id, workflow.Trigger(body.Trigger), body.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}

// Delete removes a single request
func (h *RequestHandler) Delete(c *gin.Context) {
	id, err := requestID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.requests.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Purge removes all requests or those in an inclusive date range
func (h *RequestHandler) Purge(c *gin.Context) {
	start, err := dateParam(c, "startDate")
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := dateParam(c, "endDate")
	if err != nil {
		respondError(c, err)
		return
	}
	if (start == nil) != (end == nil) {
		respondError(c, service.NewValidationError("startDate and endDate must be given together"))
		return
	}

	if _, err := h.requests.Purge(c.Request.Context(), start, end); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the handler's routes. Bulk deletion goes through
// the admin gate; everything else is open to the floor stations.
func (h *RequestHandler) RegisterRoutes(router *gin.Engine, adminGate gin.HandlerFunc) {
	api := router.Group("/api")

	api.GET("/requests", h.List)
	api.POST("/requests", h.Create)
	api.POST("/requests/import", h.Import)
	api.GET("/requests/active", h.Active)
	api.GET("/requests/history", h.History)
	api.GET("/requests/export", h.ExportHistory)
	api.GET("/requests/stats", h.Stats)
	api.PUT("/requests/:id", h.Update)
	api.DELETE("/requests/:id", h.Delete)
	api.POST("/requests/:id/transitions", h.Transition)
	api.DELETE("/requests", adminGate, h.Purge)
}

func (h *RequestHandler) historyFilter(c *gin.Context) (*service.HistoryFilter, error) {
	filter := service.HistoryFilter{
		Search: c.Query("search"),
	}

	if status := c.Query("status"); status != "" {
		parsed := models.RequestStatus(status)
		if !parsed.Valid() {
			return nil, service.NewValidationError(fmt.Sprintf("unknown status %q", status))
		}
		filter.Status = parsed
	}

	start, err := dateParam(c, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := dateParam(c, "endDate")
	if err != nil {
		return nil, err
	}
	filter.Start = start
	filter.End = end

	return &filter, nil
}

func requestID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, service.NewValidationError("invalid request id")
	}
	return id, nil
}

func dateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}

	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, service.NewValidationError(fmt.Sprintf("%s must be formatted as %s", name, dateLayout))
	}
	return &parsed, nil
}
