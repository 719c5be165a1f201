// Пакет schema — работа с внешне управляемой схемой backend:
// выбор таблицы тикетов, нормализация имён полей при чтении
// и перебор вариантов payload при записи.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bigkaa/tickly/internal/records"
)

// DefaultTicketTables — кандидаты таблицы тикетов после явно заданной.
var DefaultTicketTables = []string{"support-tickets", "support_tickets", "tickets", "ticket"}

// ErrNoAccessibleTable — ни одна таблица-кандидат недоступна.
var ErrNoAccessibleTable = errors.New("no accessible ticket table found")

// operatorHint — подсказка оператору в readiness, когда таблица не найдена.
const operatorHint = "set MANTA_TICKETS_TABLE to an existing table (e.g. support-tickets) or create one in Manta dashboard"

// Fetcher — часть records.Store, достаточная для проверки таблиц.
type Fetcher interface {
	Fetch(ctx context.Context, q records.Query) (*records.Result, error)
}

// TableResolver выбирает физическую таблицу тикетов.
// Первый успешно проверенный кандидат запоминается на всё время жизни
// процесса. Одновременные первые вызовы объединяются в одну проверку.
type TableResolver struct {
	store      Fetcher
	candidates []string
	logger     *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	resolved string
}

// NewTableResolver создаёт резолвер. override — явно заданная таблица
// (MANTA_TICKETS_TABLE), проверяется первой; пустое значение пропускается.
func NewTableResolver(store Fetcher, override string, logger *slog.Logger) *TableResolver {
	return NewTableResolverWithCandidates(store, append([]string{override}, DefaultTicketTables...), logger)
}

// NewTableResolverWithCandidates создаёт резолвер с произвольным списком кандидатов.
// Пустые значения и дубликаты удаляются, порядок сохраняется.
func NewTableResolverWithCandidates(store Fetcher, candidates []string, logger *slog.Logger) *TableResolver {
	seen := make(map[string]bool, len(candidates))
	list := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		list = append(list, c)
	}

	return &TableResolver{
		store:      store,
		candidates: list,
		logger:     logger.With(slog.String("component", "table_resolver")),
	}
}

// Candidates возвращает список кандидатов в порядке проверки.
func (r *TableResolver) Candidates() []string {
	out := make([]string, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Resolved возвращает выбранную таблицу, если она уже определена.
func (r *TableResolver) Resolved() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolved, r.resolved != ""
}

// Resolve возвращает таблицу тикетов, при первом вызове проверяя кандидатов.
// Неудачный результат не кэшируется: следующий вызов повторит проверку.
func (r *TableResolver) Resolve(ctx context.Context) (string, error) {
	if table, ok := r.Resolved(); ok {
		return table, nil
	}

	v, err, _ := r.group.Do("resolve", func() (any, error) {
		if table, ok := r.Resolved(); ok {
			return table, nil
		}
		// Отмена запроса-инициатора не прерывает общую проверку.
		return r.lookup(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// lookup последовательно проверяет кандидатов выборкой одной записи.
func (r *TableResolver) lookup(ctx context.Context) (string, error) {
	for _, table := range r.candidates {
		_, err := r.store.Fetch(ctx, records.Query{Table: table, List: 1})
		if err != nil {
			tableChecksTotal.WithLabelValues(table, resultError).Inc()
			r.logger.Debug("Таблица-кандидат недоступна",
				slog.String("table", table),
				slog.String("error", err.Error()),
			)
			continue
		}

		tableChecksTotal.WithLabelValues(table, resultAccepted).Inc()
		r.mu.Lock()
		r.resolved = table
		r.mu.Unlock()

		r.logger.Info("Таблица тикетов определена", slog.String("table", table))
		return table, nil
	}

	r.logger.Error("Ни одна таблица тикетов недоступна",
		slog.Any("candidates", r.candidates),
	)
	return "", ErrNoAccessibleTable
}

// CheckReady реализует проверку готовности для /health/ready.
// Возвращает статус ("ok", "fail") и сообщение.
func (r *TableResolver) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	table, err := r.Resolve(ctx)
	if errors.Is(err, ErrNoAccessibleTable) {
		return "fail", fmt.Sprintf("%v: %s", err, operatorHint)
	}
	if err != nil {
		return "fail", err.Error()
	}
	return "ok", fmt.Sprintf("таблица тикетов: %s", table)
}
