package handlers

import (
	"net/http"
	"strconv"

	"tickmate/internal/middleware"
	"tickmate/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateEvent handles POST /api/events (host only)
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	principal := middleware.GetPrincipal(c)
	event, err := h.services.Events.Create(c.Request.Context(), principal.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, models.CreateEventResponse{ID: event.ID})
}

// PublishEvent handles POST /api/events/:id/publish (host only)
func (h *Handlers) PublishEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(c)
	event, err := h.services.Events.Publish(c.Request.Context(), eventID, principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"id":     event.ID,
		"status": event.Status,
	})
}

// ListEvents handles GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	events, err := h.services.Events.List(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, events)
}

// GetEvent handles GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, event)
}

// AssignStaff handles POST /api/events/:id/staff (host only)
func (h *Handlers) AssignStaff(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	principal := middleware.GetPrincipal(c)
	if err := h.services.Events.AssignStaff(c.Request.Context(), eventID, principal.ID, req.StaffID); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"event_id": eventID,
		"staff_id": req.StaffID,
	})
}

// ListStaff handles GET /api/events/:id/staff (host only)
func (h *Handlers) ListStaff(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(c)
	assignments, err := h.services.Events.ListStaff(c.Request.Context(), eventID, principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, assignments)
}

// pathID parses a numeric path parameter, writing the validation response
// itself on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"kind":    "VALIDATION",
				"message": "invalid " + name + " parameter",
			},
		})
		return 0, false
	}
	return id, true
}
