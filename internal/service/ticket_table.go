// ticket_table.go — доступ к таблице тикетов с неизвестной схемой.
// Объединяет резолвер таблицы, нормализатор и перебор вариантов payload.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/records"
	"github.com/bigkaa/tickly/internal/schema"
)

// TicketTable — таблица тикетов во внешнем хранилище.
type TicketTable struct {
	store      records.Store
	resolver   *schema.TableResolver
	normalizer *schema.Normalizer
	writer     *schema.Writer
	logger     *slog.Logger
}

// NewTicketTable создаёт доступ к таблице тикетов.
func NewTicketTable(
	store records.Store,
	resolver *schema.TableResolver,
	normalizer *schema.Normalizer,
	writer *schema.Writer,
	logger *slog.Logger,
) *TicketTable {
	return &TicketTable{
		store:      store,
		resolver:   resolver,
		normalizer: normalizer,
		writer:     writer,
		logger:     logger.With(slog.String("component", "ticket_table")),
	}
}

// storedTicket — тикет вместе с условием, по которому его можно адресовать.
type storedTicket struct {
	ticket model.Ticket
	where  records.Record
}

// fetch выбирает сырые записи тикетов по where.
func (t *TicketTable) fetch(ctx context.Context, table string, where records.Record) (*records.Result, error) {
	return t.store.Fetch(ctx, records.Query{Table: table, Where: where})
}

// normalizeAll нормализует записи и сортирует по createdAt (новые первыми).
func (t *TicketTable) normalizeAll(rows []records.Record) []model.Ticket {
	out := make([]model.Ticket, 0, len(rows))
	for _, raw := range rows {
		out = append(out, t.normalizer.Ticket(raw))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// All возвращает все тикеты.
func (t *TicketTable) All(ctx context.Context) ([]model.Ticket, error) {
	table, err := t.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	res, err := t.fetch(ctx, table, nil)
	if err != nil {
		return nil, fmt.Errorf("выборка тикетов: %w", err)
	}
	return t.normalizeAll(res.Data), nil
}

// ByUser возвращает тикеты владельца.
func (t *TicketTable) ByUser(ctx context.Context, userID string) ([]model.Ticket, error) {
	table, err := t.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	res, err := t.writer.FetchByAlias(ctx, "list_user_tickets", schema.UserIDWhereKeys, userID,
		func(ctx context.Context, where records.Record) (*records.Result, error) {
			return t.fetch(ctx, table, where)
		})
	if err != nil {
		return nil, fmt.Errorf("выборка тикетов пользователя: %w", err)
	}
	return t.normalizeAll(res.Data), nil
}

// get возвращает тикет по id. ErrNotFound, если записи нет.
func (t *TicketTable) get(ctx context.Context, id string) (*storedTicket, error) {
	table, err := t.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	idKeys := schema.TicketAliases["id"]
	res, err := t.writer.FetchByAlias(ctx, "get_ticket", idKeys, id,
		func(ctx context.Context, where records.Record) (*records.Result, error) {
			return t.fetch(ctx, table, where)
		})
	if err != nil {
		return nil, fmt.Errorf("выборка тикета %s: %w", id, err)
	}
	if len(res.Data) == 0 {
		return nil, ErrNotFound
	}

	raw := res.Data[0]
	where := records.Record{"id": id}
	for _, k := range idKeys {
		if records.ValueString(raw[k]) == id {
			where = records.Record{k: id}
			break
		}
	}

	return &storedTicket{ticket: t.normalizer.Ticket(raw), where: where}, nil
}

// update применяет первый принятый вариант payload к тикету.
func (t *TicketTable) update(ctx context.Context, op string, st *storedTicket, candidates []records.Record) error {
	table, err := t.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	_, err = t.writer.Write(ctx, op, candidates, func(ctx context.Context, payload records.Record) error {
		return t.store.Update(ctx, table, st.where, payload)
	})
	return err
}

// create вставляет новый тикет, перебирая варианты имён полей.
func (t *TicketTable) create(ctx context.Context, ticket model.Ticket) error {
	table, err := t.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	idx, err := t.writer.Write(ctx, "create_ticket", schema.CreateCandidates(ticket),
		func(ctx context.Context, payload records.Record) error {
			return t.store.Create(ctx, table, []records.Record{payload})
		})
	if err != nil {
		return err
	}
	t.logger.Debug("Тикет создан",
		slog.String("ticket_id", ticket.ID),
		slog.String("table", table),
		slog.Int("candidate", idx),
	)
	return nil
}

// delete удаляет запись тикета.
func (t *TicketTable) delete(ctx context.Context, st *storedTicket) error {
	table, err := t.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	return t.store.Delete(ctx, table, st.where)
}

// now возвращает текущее время в формате записей.
func (t *TicketTable) now() string {
	return model.FormatTime(t.normalizer.Now())
}
