// Пакет records — абстракция хранилища записей с внешне управляемой схемой.
// Запись — плоский JSON-объект, имена полей которого заранее неизвестны.
// Драйверы: manta (HTTP BaaS), repository (PostgreSQL), memstore (in-memory).
package records

import (
	"context"
	"errors"
)

// Ошибки хранилища, по которым вызывающий код принимает решения.
var (
	// ErrTableNotFound — таблица не существует или недоступна для ключа.
	ErrTableNotFound = errors.New("table not found")
	// ErrUnknownField — в запросе указано поле, отсутствующее в схеме таблицы.
	ErrUnknownField = errors.New("unknown field")
)

// Порядок сортировки.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Record — одна запись таблицы.
type Record map[string]any

// Clone возвращает поверхностную копию записи.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Search — полнотекстовый (подстрочный, без учёта регистра) поиск по колонкам.
type Search struct {
	Columns []string `json:"columns"`
	Query   string   `json:"query"`
}

// Query — параметры выборки.
type Query struct {
	// Table — имя таблицы.
	Table string
	// Fields — проекция (пусто — все поля).
	Fields []string
	// Where — фильтр по равенству значений.
	Where Record
	// Page — номер страницы (с 1). Используется только при List > 0.
	Page int
	// List — размер страницы (0 — без пагинации).
	List int
	// OrderBy — поле сортировки.
	OrderBy string
	// Order — asc или desc.
	Order string
	// Search — поиск по подстроке (опционально).
	Search *Search
}

// Meta — метаданные пагинации.
type Meta struct {
	Page       int `json:"page"`
	List       int `json:"list"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Result — результат выборки.
type Result struct {
	Data []Record
	// Meta заполняется только для постраничных запросов.
	Meta *Meta
}

// Store — хранилище записей.
type Store interface {
	// Fetch возвращает записи по запросу.
	Fetch(ctx context.Context, q Query) (*Result, error)
	// Create вставляет записи в таблицу.
	Create(ctx context.Context, table string, rows []Record) error
	// Update обновляет поля data у всех записей, подходящих под where.
	Update(ctx context.Context, table string, where, data Record) error
	// Delete удаляет все записи, подходящие под where.
	Delete(ctx context.Context, table string, where Record) error
}
