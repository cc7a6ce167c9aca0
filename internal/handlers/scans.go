package handlers

import (
	"encoding/json"
	"net/http"

	"tickmate/internal/logger"
	"tickmate/internal/middleware"
	"tickmate/internal/models"

	"github.com/gin-gonic/gin"
)

// Scan handles POST /api/scans (staff only)
func (h *Handlers) Scan(c *gin.Context) {
	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	principal := middleware.GetPrincipal(c)
	result, err := h.services.CheckIn.Scan(c.Request.Context(), principal.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cache != nil {
		h.cache.InvalidateAttendance(c.Request.Context(), result.EventID)
	}

	respond(c, http.StatusOK, result)
}

// Attendance handles GET /api/events/:id/attendance (staff only). The summary
// is served from a short-lived cache; a scan invalidates it, so staff at the
// door see fresh numbers without hammering the aggregate query.
func (h *Handlers) Attendance(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	principal := middleware.GetPrincipal(c)

	if h.cache != nil {
		if raw, err := h.cache.GetAttendanceRaw(ctx, eventID); err == nil {
			// Still authorize; the cache only skips the aggregation.
			if err := h.services.CheckIn.AuthorizeStaff(ctx, eventID, principal.ID); err != nil {
				respondError(c, err)
				return
			}
			c.Data(http.StatusOK, "application/json", raw)
			return
		}
	}

	summary, err := h.services.CheckIn.AttendanceSummary(ctx, eventID, principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cache != nil {
		if payload, err := marshalEnvelope(summary); err == nil {
			h.cache.SetAttendanceRaw(ctx, eventID, payload)
		} else {
			logger.WithContext(ctx).Warn("Failed to marshal attendance for cache", "error", err)
		}
	}

	respond(c, http.StatusOK, summary)
}

func marshalEnvelope(data interface{}) ([]byte, error) {
	return json.Marshal(gin.H{
		"success": true,
		"data":    data,
	})
}
