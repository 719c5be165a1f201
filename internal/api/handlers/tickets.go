// tickets.go — обработчики тикетов владельца: /api/tickets.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/tickly/internal/api/errors"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/service"
)

// TicketHandler — обработчик тикетов владельца.
type TicketHandler struct {
	tickets *service.TicketService
	logger  *slog.Logger
}

// NewTicketHandler создаёт обработчик тикетов.
func NewTicketHandler(tickets *service.TicketService, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		tickets: tickets,
		logger:  logger.With(slog.String("component", "ticket_handler")),
	}
}

type ticketsResponse struct {
	Success bool           `json:"success"`
	Tickets []model.Ticket `json:"tickets"`
}

type ticketResponse struct {
	Success bool          `json:"success"`
	Ticket  *model.Ticket `json:"ticket"`
}

type statsResponse struct {
	Success bool `json:"success"`
	Stats   any  `json:"stats"`
}

type createTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	UserID      string `json:"userId"`
}

type updateTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// List — GET /api/tickets?userId=.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.List(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to fetch tickets")
		return
	}
	writeJSON(w, http.StatusOK, ticketsResponse{Success: true, Tickets: tickets})
}

// Stats — GET /api/tickets/stats?userId=.
func (h *TicketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tickets.Stats(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

// Create — POST /api/tickets.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Invalid payload")
		return
	}

	ticket, err := h.tickets.Create(r.Context(), service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		UserID:      req.UserID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create ticket")
		return
	}
	writeJSON(w, http.StatusOK, ticketResponse{Success: true, Ticket: ticket})
}

// Update — PATCH /api/tickets/{id}.
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Invalid payload")
		return
	}

	err := h.tickets.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update ticket")
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// Delete — DELETE /api/tickets/{id}.
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tickets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete ticket")
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}
