// Пакет memstore — in-memory драйвер хранилища записей.
// Используется для локальной разработки (TICKLY_STORE_DRIVER=memory) и тестов.
// Таблица может иметь фиксированный набор полей: обращение к полю вне
// схемы возвращает records.ErrUnknownField, как и у удалённого backend.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bigkaa/tickly/internal/records"
)

// table — одна таблица хранилища.
type table struct {
	// fields == nil — схема не ограничена.
	fields map[string]struct{}
	rows   []records.Record
}

// Store — потокобезопасное in-memory хранилище записей.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// CreateTable создаёт (или пересоздаёт) таблицу.
// Без fields таблица принимает любые поля.
func (s *Store) CreateTable(name string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &table{}
	if len(fields) > 0 {
		t.fields = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			t.fields[f] = struct{}{}
		}
	}
	s.tables[name] = t
}

// Rows возвращает копию всех строк таблицы (для тестов и отладки).
func (s *Store) Rows(name string) []records.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	out := make([]records.Record, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r.Clone())
	}
	return out
}

// Fetch возвращает записи таблицы по запросу.
func (s *Store) Fetch(_ context.Context, q records.Query) (*records.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(q.Table)
	if err != nil {
		return nil, err
	}
	if err := t.checkQuery(q); err != nil {
		return nil, err
	}
	return records.Apply(t.rows, q), nil
}

// Create вставляет записи. Все строки проверяются до вставки.
func (s *Store) Create(_ context.Context, name string, rows []records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(name)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := t.checkFields(r); err != nil {
			return err
		}
	}
	for _, r := range rows {
		t.rows = append(t.rows, r.Clone())
	}
	return nil
}

// Update обновляет поля у всех записей, подходящих под where.
func (s *Store) Update(_ context.Context, name string, where, data records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(name)
	if err != nil {
		return err
	}
	if err := t.checkFields(where); err != nil {
		return err
	}
	if err := t.checkFields(data); err != nil {
		return err
	}
	for _, r := range t.rows {
		if !records.Matches(r, where) {
			continue
		}
		for k, v := range data {
			r[k] = v
		}
	}
	return nil
}

// Delete удаляет все записи, подходящие под where.
func (s *Store) Delete(_ context.Context, name string, where records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(name)
	if err != nil {
		return err
	}
	if err := t.checkFields(where); err != nil {
		return err
	}
	kept := t.rows[:0]
	for _, r := range t.rows {
		if !records.Matches(r, where) {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	return nil
}

// table возвращает таблицу по имени. Вызывается под блокировкой.
func (s *Store) table(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", records.ErrTableNotFound, name)
	}
	return t, nil
}

// checkQuery проверяет поля фильтра, сортировки и поиска.
func (t *table) checkQuery(q records.Query) error {
	if err := t.checkFields(q.Where); err != nil {
		return err
	}
	if q.OrderBy != "" {
		if err := t.checkNames(q.OrderBy); err != nil {
			return err
		}
	}
	if q.Search != nil && strings.TrimSpace(q.Search.Query) != "" {
		if err := t.checkNames(q.Search.Columns...); err != nil {
			return err
		}
	}
	return nil
}

// checkFields проверяет, что все ключи записи входят в схему таблицы.
func (t *table) checkFields(rec records.Record) error {
	if t.fields == nil {
		return nil
	}
	names := make([]string, 0, len(rec))
	for k := range rec {
		names = append(names, k)
	}
	sort.Strings(names)
	return t.checkNames(names...)
}

// checkNames возвращает ErrUnknownField для первого имени вне схемы.
func (t *table) checkNames(names ...string) error {
	if t.fields == nil {
		return nil
	}
	for _, name := range names {
		if _, ok := t.fields[name]; !ok {
			return fmt.Errorf("%w: %s", records.ErrUnknownField, name)
		}
	}
	return nil
}
