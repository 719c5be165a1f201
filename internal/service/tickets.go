// Пакет service — бизнес-логика Tickly.
// tickets.go — операции владельца тикета: список, создание, изменение, удаление.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bigkaa/tickly/internal/domain/lifecycle"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/records"
	"github.com/bigkaa/tickly/internal/schema"
)

// Ограничения полей тикета.
const (
	minTitleLen       = 3
	minDescriptionLen = 5
)

// CreateTicketInput — данные нового тикета.
type CreateTicketInput struct {
	Title       string
	Description string
	Priority    string
	UserID      string
}

// UpdateTicketInput — изменяемые владельцем поля. nil — поле не меняется.
type UpdateTicketInput struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
}

// TicketService — операции владельца тикета.
type TicketService struct {
	tickets *TicketTable
	newID   func() string
	logger  *slog.Logger
}

// NewTicketService создаёт сервис тикетов.
func NewTicketService(tickets *TicketTable, logger *slog.Logger) *TicketService {
	return &TicketService{
		tickets: tickets,
		newID:   uuid.NewString,
		logger:  logger.With(slog.String("component", "ticket_service")),
	}
}

// List возвращает тикеты пользователя, новые первыми.
// Заметки администратора владельцу не отдаются.
func (s *TicketService) List(ctx context.Context, userID string) ([]model.Ticket, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationError("userId is required")
	}

	tickets, err := s.tickets.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].InternalNotes = ""
	}
	return tickets, nil
}

// Stats возвращает счётчики тикетов пользователя по статусам.
func (s *TicketService) Stats(ctx context.Context, userID string) (*model.TicketStats, error) {
	tickets, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	var stats model.TicketStats
	for _, t := range tickets {
		stats.Add(t.Status)
	}
	return &stats, nil
}

// Create создаёт тикет со статусом open.
func (s *TicketService) Create(ctx context.Context, in CreateTicketInput) (*model.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	userID := strings.TrimSpace(in.UserID)

	if title == "" || description == "" || strings.TrimSpace(in.Priority) == "" || userID == "" {
		return nil, validationError("Missing required fields")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	priority, ok := lifecycle.ParsePriority(in.Priority)
	if !ok {
		return nil, validationError("Priority must be one of: low, medium, high")
	}

	now := s.tickets.now()
	ticket := model.Ticket{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      model.StatusOpen,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tickets.create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("создание тикета: %w", err)
	}

	s.logger.Info("Тикет создан",
		slog.String("ticket_id", ticket.ID),
		slog.String("user_id", ticket.UserID),
		slog.String("priority", string(ticket.Priority)),
	)
	return &ticket, nil
}

// Update изменяет поля тикета владельцем.
// ErrNotFound — тикета нет; ErrDeletedByAdmin — тикет удалён администратором.
func (s *TicketService) Update(ctx context.Context, id string, in UpdateTicketInput) error {
	fields, err := s.updateFields(in)
	if err != nil {
		return err
	}

	st, err := s.tickets.get(ctx, id)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckMutable(&st.ticket); err != nil {
		return err
	}

	now := s.tickets.now()
	candidates := schema.UpdateCandidates(fields, now)
	if alias := s.tickets.normalizer.ClosedAlias(); alias != "" && fields["status"] == string(model.StatusClosed) {
		aliased := make(map[string]any, len(fields))
		for k, v := range fields {
			aliased[k] = v
		}
		aliased["status"] = alias
		candidates = append(candidates, schema.UpdateCandidates(aliased, now)...)
	}

	if err := s.tickets.update(ctx, "update_ticket", st, candidates); err != nil {
		return fmt.Errorf("обновление тикета %s: %w", id, err)
	}
	return nil
}

// updateFields проверяет изменения и возвращает их с каноническими именами.
func (s *TicketService) updateFields(in UpdateTicketInput) (map[string]any, error) {
	fields := make(map[string]any, 4)

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
		fields["description"] = description
	}
	if in.Priority != nil {
		p, ok := lifecycle.ParsePriority(*in.Priority)
		if !ok {
			return nil, validationError("Priority must be one of: low, medium, high")
		}
		fields["priority"] = string(p)
	}
	if in.Status != nil {
		st, ok := lifecycle.ParseStrictStatus(*in.Status)
		if !ok {
			return nil, validationError("Status must be one of: open, in-progress, closed")
		}
		fields["status"] = string(st)
	}

	if len(fields) == 0 {
		return nil, validationError("No fields to update")
	}
	return fields, nil
}

// Delete удаляет тикет владельцем.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	st, err := s.tickets.get(ctx, id)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckMutable(&st.ticket); err != nil {
		return err
	}
	if err := s.tickets.delete(ctx, st); err != nil {
		return fmt.Errorf("удаление тикета %s: %w", id, err)
	}

	s.logger.Info("Тикет удалён владельцем", slog.String("ticket_id", id))
	return nil
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) < minTitleLen {
		return validationError(fmt.Sprintf("Title must be at least %d characters", minTitleLen))
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) < minDescriptionLen {
		return validationError(fmt.Sprintf("Description must be at least %d characters", minDescriptionLen))
	}
	return nil
}

// IsConfigError сообщает, что ошибка вызвана недоступной таблицей тикетов.
func IsConfigError(err error) bool {
	return errors.Is(err, schema.ErrNoAccessibleTable) || errors.Is(err, records.ErrTableNotFound)
}
