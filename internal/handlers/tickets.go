package handlers

import (
	"net/http"

	"tickmate/internal/middleware"
	"tickmate/internal/models"

	"github.com/gin-gonic/gin"
)

// IssueTicket handles POST /api/tickets (attendee only)
func (h *Handlers) IssueTicket(c *gin.Context) {
	var req models.IssueTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	principal := middleware.GetPrincipal(c)
	ticket, err := h.services.Ledger.Issue(c.Request.Context(), principal.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, models.IssueTicketResponse{
		ID:                ticket.ID,
		EventID:           ticket.EventID,
		TicketNumber:      ticket.TicketNumber,
		VerificationToken: ticket.VerificationToken,
		PricePaid:         ticket.PricePaid,
		Status:            ticket.Status,
	})
}

// ListMyTickets handles GET /api/tickets (attendee only)
func (h *Handlers) ListMyTickets(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	tickets, err := h.services.Ledger.ListForAttendee(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, tickets)
}

// CancelTicket handles DELETE /api/tickets/:id (attendee only)
func (h *Handlers) CancelTicket(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.CancelTicketRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}
	}

	principal := middleware.GetPrincipal(c)
	refund, err := h.services.Ledger.Cancel(c.Request.Context(), ticketID, principal.ID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, models.CancelTicketResponse{RefundAmount: refund})
}
