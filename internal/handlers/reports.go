package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tickmate/internal/middleware"
	"tickmate/internal/models"

	"github.com/gin-gonic/gin"
)

// TicketReport handles GET /api/reports/tickets (host or assigned staff).
// The filter is scoped to one event via the required event_id parameter.
func (h *Handlers) TicketReport(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Query("event_id"), 10, 64)
	if err != nil || eventID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"kind":    "VALIDATION",
				"message": "event_id query parameter is required",
			},
		})
		return
	}

	filter := models.TicketFilter{EventID: &eventID}

	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if raw := c.Query("attendee_id"); raw != "" {
		if attendeeID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.AttendeeID = &attendeeID
		}
	}
	if from, ok := queryTime(c, "from"); ok {
		filter.From = &from
	}
	if to, ok := queryTime(c, "to"); ok {
		filter.To = &to
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	principal := middleware.GetPrincipal(c)
	tickets, err := h.services.Reporting.TicketReport(c.Request.Context(), principal.ID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, tickets)
}

// Analytics handles GET /api/events/:id/analytics (host or assigned staff)
func (h *Handlers) Analytics(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(c)
	analytics, err := h.services.Reporting.Analytics(c.Request.Context(), eventID, principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, analytics)
}

// ScanHistogram handles GET /api/events/:id/scans/histogram (host or
// assigned staff)
func (h *Handlers) ScanHistogram(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(c)
	buckets, err := h.services.Reporting.ScanHistogram(c.Request.Context(), eventID, principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, buckets)
}

func queryTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
