package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/tickly/internal/records"
)

// RecordStore — драйвер хранилища записей на PostgreSQL.
// Логические таблицы зарегистрированы в record_tables, записи хранятся
// JSONB-документами в records. Поле вне списка fields таблицы даёт
// records.ErrUnknownField.
type RecordStore struct {
	db DBTX
}

// NewRecordStore создаёт драйвер хранилища записей.
func NewRecordStore(db DBTX) *RecordStore {
	return &RecordStore{db: db}
}

// schema — разрешённые поля таблицы. nil — схема не ограничена.
type schema map[string]struct{}

func (s schema) check(keys ...string) error {
	if s == nil {
		return nil
	}
	for _, k := range keys {
		if _, ok := s[k]; !ok {
			return fmt.Errorf("%w: %s", records.ErrUnknownField, k)
		}
	}
	return nil
}

// loadSchema читает список полей логической таблицы.
func (s *RecordStore) loadSchema(ctx context.Context, table string) (schema, error) {
	var (
		unrestricted bool
		fields       []string
	)
	err := s.db.QueryRow(ctx,
		`SELECT fields IS NULL, COALESCE(fields, '{}'::text[]) FROM record_tables WHERE name = $1`,
		table,
	).Scan(&unrestricted, &fields)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", records.ErrTableNotFound, table)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения схемы таблицы %s: %w", table, err)
	}
	if unrestricted {
		return nil, nil
	}

	out := make(schema, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out, nil
}

// Fetch возвращает записи таблицы по запросу.
func (s *RecordStore) Fetch(ctx context.Context, q records.Query) (*records.Result, error) {
	sc, err := s.loadSchema(ctx, q.Table)
	if err != nil {
		return nil, err
	}
	if err := sc.check(keys(q.Where)...); err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		if err := sc.check(q.OrderBy); err != nil {
			return nil, err
		}
	}
	if q.Search != nil && strings.TrimSpace(q.Search.Query) != "" {
		if err := sc.check(q.Search.Columns...); err != nil {
			return nil, err
		}
	}

	f := newFilter(q.Table)
	f.where(q.Where)
	f.search(q.Search)

	var meta *records.Meta
	if q.List > 0 {
		var total int
		countSQL := "SELECT count(*) FROM records WHERE " + f.sql()
		if err := s.db.QueryRow(ctx, countSQL, f.args...).Scan(&total); err != nil {
			return nil, fmt.Errorf("ошибка подсчёта записей %s: %w", q.Table, err)
		}
		page := max(q.Page, 1)
		meta = &records.Meta{
			Page:       page,
			List:       q.List,
			Total:      total,
			TotalPages: (total + q.List - 1) / q.List,
		}
	}

	query := "SELECT data FROM records WHERE " + f.sql() + f.orderBy(q.OrderBy, q.Order)
	if meta != nil {
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", f.arg(q.List), f.arg((meta.Page-1)*q.List))
	}

	rows, err := s.db.Query(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки записей %s: %w", q.Table, err)
	}
	defer rows.Close()

	data := make([]records.Record, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи %s: %w", q.Table, err)
		}
		var rec records.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("ошибка декодирования записи %s: %w", q.Table, err)
		}
		data = append(data, records.Project(rec, q.Fields))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка выборки записей %s: %w", q.Table, err)
	}

	return &records.Result{Data: data, Meta: meta}, nil
}

// Create вставляет записи одним запросом.
func (s *RecordStore) Create(ctx context.Context, table string, rows []records.Record) error {
	if len(rows) == 0 {
		return nil
	}
	sc, err := s.loadSchema(ctx, table)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := sc.check(keys(r)...); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записей: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO records (table_name, data)
		 SELECT $1, elem FROM jsonb_array_elements($2::jsonb) AS elem`,
		table, payload,
	)
	if err != nil {
		return fmt.Errorf("ошибка вставки записей %s: %w", table, err)
	}
	return nil
}

// Update дополняет JSONB-документы подходящих записей полями data.
func (s *RecordStore) Update(ctx context.Context, table string, where, data records.Record) error {
	if len(where) == 0 {
		return errors.New("пустое условие where")
	}
	sc, err := s.loadSchema(ctx, table)
	if err != nil {
		return err
	}
	if err := sc.check(keys(where)...); err != nil {
		return err
	}
	if err := sc.check(keys(data)...); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных: %w", err)
	}

	f := newFilter(table)
	f.where(where)
	query := fmt.Sprintf("UPDATE records SET data = data || %s::jsonb WHERE %s", f.arg(payload), f.sql())

	if _, err := s.db.Exec(ctx, query, f.args...); err != nil {
		return fmt.Errorf("ошибка обновления записей %s: %w", table, err)
	}
	return nil
}

// Delete удаляет подходящие записи.
func (s *RecordStore) Delete(ctx context.Context, table string, where records.Record) error {
	if len(where) == 0 {
		return errors.New("пустое условие where")
	}
	sc, err := s.loadSchema(ctx, table)
	if err != nil {
		return err
	}
	if err := sc.check(keys(where)...); err != nil {
		return err
	}

	f := newFilter(table)
	f.where(where)
	if _, err := s.db.Exec(ctx, "DELETE FROM records WHERE "+f.sql(), f.args...); err != nil {
		return fmt.Errorf("ошибка удаления записей %s: %w", table, err)
	}
	return nil
}

// --- построение SQL ---

// filter накапливает условия WHERE и позиционные аргументы.
type filter struct {
	clauses []string
	args    []any
}

func newFilter(table string) *filter {
	f := &filter{}
	f.clauses = append(f.clauses, "table_name = "+f.arg(table))
	return f
}

// arg добавляет аргумент и возвращает его плейсхолдер.
func (f *filter) arg(v any) string {
	f.args = append(f.args, v)
	return "$" + strconv.Itoa(len(f.args))
}

// where добавляет условия равенства (по текстовому значению поля).
func (f *filter) where(where records.Record) {
	for _, k := range keys(where) {
		f.clauses = append(f.clauses,
			fmt.Sprintf("data->>%s::text = %s::text", f.arg(k), f.arg(records.ValueString(where[k]))))
	}
}

// search добавляет ILIKE по колонкам поиска.
func (f *filter) search(s *records.Search) {
	if s == nil || len(s.Columns) == 0 {
		return
	}
	q := strings.TrimSpace(s.Query)
	if q == "" {
		return
	}
	pattern := f.arg("%" + escapeLike(q) + "%")
	parts := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		parts = append(parts, fmt.Sprintf("COALESCE(data->>%s::text, '') ILIKE %s::text", f.arg(col), pattern))
	}
	f.clauses = append(f.clauses, "("+strings.Join(parts, " OR ")+")")
}

// orderBy возвращает ORDER BY; при равенстве сохраняется порядок вставки.
func (f *filter) orderBy(field, order string) string {
	if field == "" {
		return " ORDER BY seq"
	}
	dir := "ASC"
	if strings.EqualFold(order, records.OrderDesc) {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY data->>%s::text %s, seq", f.arg(field), dir)
}

func (f *filter) sql() string {
	return strings.Join(f.clauses, " AND ")
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// keys возвращает отсортированные ключи записи.
func keys(r records.Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
