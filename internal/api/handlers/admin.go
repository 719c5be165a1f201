// admin.go — обработчики админской панели: /api/admin/*.
// Доступ проверяется middleware RequireAdmin на уровне роутера.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/tickly/internal/api/errors"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/service"
)

// AdminHandler — обработчик админских endpoints.
type AdminHandler struct {
	tickets *service.AdminTicketService
	users   *service.UserService
	logger  *slog.Logger
}

// NewAdminHandler создаёт обработчик админских endpoints.
func NewAdminHandler(tickets *service.AdminTicketService, users *service.UserService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		tickets: tickets,
		users:   users,
		logger:  logger.With(slog.String("component", "admin_handler")),
	}
}

type adminTicketsResponse struct {
	Success bool                `json:"success"`
	Tickets []model.AdminTicket `json:"tickets"`
}

type adminTicketResponse struct {
	Success bool               `json:"success"`
	Ticket  *model.AdminTicket `json:"ticket"`
}

type usersResponse struct {
	Success bool            `json:"success"`
	Users   []model.User    `json:"users"`
	Meta    *model.PageMeta `json:"meta"`
}

type noteRequest struct {
	Note *string `json:"note"`
}

type adminPatchRequest struct {
	Status     *string `json:"status"`
	SoftDelete bool    `json:"softDelete"`
}

type updateRoleRequest struct {
	UserID  string `json:"userId"`
	NewRole string `json:"newRole"`
}

// ListTickets — GET /api/admin/tickets.
func (h *AdminHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to fetch tickets")
		return
	}
	writeJSON(w, http.StatusOK, adminTicketsResponse{Success: true, Tickets: tickets})
}

// GetTicket — GET /api/admin/tickets/{id}.
func (h *AdminHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, adminTicketResponse{Success: true, Ticket: ticket})
}

// SaveNote — POST /api/admin/tickets/{id} с телом {note}.
func (h *AdminHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Note == nil {
		apierrors.ValidationError(w, "Invalid payload")
		return
	}

	if err := h.tickets.SaveNote(r.Context(), chi.URLParam(r, "id"), *req.Note); err != nil {
		writeServiceError(w, h.logger, err, "Failed to save note")
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// PatchTicket — PATCH /api/admin/tickets/{id}.
// {softDelete:true} помечает тикет удалённым, {status} меняет статус.
func (h *AdminHandler) PatchTicket(w http.ResponseWriter, r *http.Request) {
	var req adminPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Invalid payload")
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	switch {
	case req.SoftDelete:
		err = h.tickets.SoftDelete(r.Context(), id)
	case req.Status != nil:
		err = h.tickets.SetStatus(r.Context(), id, *req.Status)
	default:
		apierrors.ValidationError(w, "Invalid payload")
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update ticket")
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// Stats — GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tickets.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

// ListUsers — GET /api/admin/users?page=&query=.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.users.List(r.Context(), page, r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to fetch users")
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Success: true, Users: result.Users, Meta: result.Meta})
}

// UpdateRole — PATCH /api/admin/users/update-role.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Invalid payload")
		return
	}

	if err := h.users.UpdateRole(r.Context(), req.UserID, req.NewRole); err != nil {
		writeServiceError(w, h.logger, err, "Failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}
