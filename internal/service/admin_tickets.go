// admin_tickets.go — операции администратора над тикетами:
// список с профилями владельцев, заметки, статус, soft-delete, статистика.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/tickly/internal/domain/lifecycle"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/domain/rbac"
	"github.com/bigkaa/tickly/internal/schema"
)

// AdminTicketService — операции администратора над тикетами.
type AdminTicketService struct {
	tickets     *TicketTable
	users       *UserService
	concurrency int
	logger      *slog.Logger
}

// NewAdminTicketService создаёт сервис.
// concurrency — максимум параллельных запросов профилей владельцев.
func NewAdminTicketService(tickets *TicketTable, users *UserService, concurrency int, logger *slog.Logger) *AdminTicketService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AdminTicketService{
		tickets:     tickets,
		users:       users,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "admin_ticket_service")),
	}
}

// List возвращает все тикеты с профилями владельцев, новые первыми.
func (s *AdminTicketService) List(ctx context.Context) ([]model.AdminTicket, error) {
	tickets, err := s.tickets.All(ctx)
	if err != nil {
		return nil, err
	}

	owners := s.owners(ctx, tickets)
	out := make([]model.AdminTicket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, model.AdminTicket{Ticket: t, User: owners[t.UserID]})
	}
	return out, nil
}

// owners загружает профили владельцев параллельно.
// Ошибка по одному владельцу оставляет его профиль nil и не прерывает остальные.
func (s *AdminTicketService) owners(ctx context.Context, tickets []model.Ticket) map[string]*model.Owner {
	ids := make(map[string]struct{})
	for _, t := range tickets {
		if t.UserID != "" {
			ids[t.UserID] = struct{}{}
		}
	}

	var (
		mu     sync.Mutex
		result = make(map[string]*model.Owner, len(ids))
	)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for id := range ids {
		g.Go(func() error {
			owner, err := s.users.Owner(ctx, id)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					s.logger.Warn("Не удалось получить профиль владельца",
						slog.String("user_id", id),
						slog.String("error", err.Error()),
					)
				}
				return nil
			}
			mu.Lock()
			result[id] = owner
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// Get возвращает тикет с профилем владельца.
func (s *AdminTicketService) Get(ctx context.Context, id string) (*model.AdminTicket, error) {
	st, err := s.tickets.get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &model.AdminTicket{Ticket: st.ticket}
	if st.ticket.UserID != "" {
		owner, err := s.users.Owner(ctx, st.ticket.UserID)
		if err == nil {
			out.User = owner
		} else if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Не удалось получить профиль владельца",
				slog.String("ticket_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return out, nil
}

// SaveNote перезаписывает заметки администратора.
// Маркер soft-delete из прежних заметок сохраняется.
func (s *AdminTicketService) SaveNote(ctx context.Context, id, note string) error {
	st, err := s.tickets.get(ctx, id)
	if err != nil {
		return err
	}

	notes := lifecycle.PreserveMarker(st.ticket.InternalNotes, note)
	if err := s.tickets.update(ctx, "save_note", st, schema.NoteCandidates(notes, s.tickets.now())); err != nil {
		return fmt.Errorf("сохранение заметки тикета %s: %w", id, err)
	}

	s.logger.Info("Заметка сохранена", slog.String("ticket_id", id))
	return nil
}

// SetStatus меняет статус тикета. Удалённый администратором тикет не меняется.
func (s *AdminTicketService) SetStatus(ctx context.Context, id, rawStatus string) error {
	status, ok := lifecycle.ParseStrictStatus(rawStatus)
	if !ok {
		return validationError("Status must be one of: open, in-progress, closed")
	}

	st, err := s.tickets.get(ctx, id)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckMutable(&st.ticket); err != nil {
		return err
	}

	now := s.tickets.now()
	candidates := schema.StatusCandidates(status, now, s.tickets.normalizer.ClosedAlias())
	if err := s.tickets.update(ctx, "set_status", st, candidates); err != nil {
		return fmt.Errorf("смена статуса тикета %s: %w", id, err)
	}

	s.logger.Info("Статус тикета изменён",
		slog.String("ticket_id", id),
		slog.String("from", string(st.ticket.Status)),
		slog.String("to", string(status)),
	)
	return nil
}

// SoftDelete помечает тикет удалённым администратором.
// Повторный вызов ничего не меняет.
func (s *AdminTicketService) SoftDelete(ctx context.Context, id string) error {
	st, err := s.tickets.get(ctx, id)
	if err != nil {
		return err
	}
	if lifecycle.IsMarked(st.ticket.InternalNotes) {
		return nil
	}

	notes := lifecycle.Mark(st.ticket.InternalNotes, s.tickets.normalizer.Now())
	if err := s.tickets.update(ctx, "soft_delete", st, schema.NoteCandidates(notes, s.tickets.now())); err != nil {
		return fmt.Errorf("soft-delete тикета %s: %w", id, err)
	}

	s.logger.Info("Тикет удалён администратором", slog.String("ticket_id", id))
	return nil
}

// Dashboard возвращает статистику для админской панели.
func (s *AdminTicketService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	tickets, err := s.tickets.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{Users: -1}
	byUser := make(map[string]*model.UserTicketStats)
	for _, t := range tickets {
		stats.Add(t.Status)

		u, ok := byUser[t.UserID]
		if !ok {
			u = &model.UserTicketStats{UserID: t.UserID}
			byUser[t.UserID] = u
		}
		u.Count++
		switch t.Status {
		case model.StatusOpen:
			u.Open++
		case model.StatusClosed:
			u.Closed++
		}
	}

	owners := s.owners(ctx, tickets)
	stats.ByUser = make([]model.UserTicketStats, 0, len(byUser))
	for id, u := range byUser {
		u.Name = id
		if owner := owners[id]; owner != nil {
			u.Name = rbac.FirstNonEmpty(owner.FullName, owner.Email, id)
		}
		stats.ByUser = append(stats.ByUser, *u)
	}
	sort.Slice(stats.ByUser, func(i, j int) bool {
		if stats.ByUser[i].Count != stats.ByUser[j].Count {
			return stats.ByUser[i].Count > stats.ByUser[j].Count
		}
		return stats.ByUser[i].Name < stats.ByUser[j].Name
	})

	if count, err := s.users.Count(ctx); err == nil {
		stats.Users = count
	} else {
		s.logger.Warn("Не удалось посчитать пользователей", slog.String("error", err.Error()))
	}

	return stats, nil
}
