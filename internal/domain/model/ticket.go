// Пакет model — доменные модели Tickly.
// Модели не хранятся напрямую: они формируются нормализатором
// из сырых записей хранилища с нестабильными именами полей.
package model

import "time"

// TimeLayout — формат временных меток в записях (ISO-8601, миллисекунды, UTC).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime форматирует время в TimeLayout (всегда UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Status — статус тикета.
type Status string

// Статусы тикета.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusClosed     Status = "closed"
)

// Priority — приоритет тикета.
type Priority string

// Приоритеты тикета.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Ticket — тикет в каноническом виде.
type Ticket struct {
	// ID — уникальный идентификатор, неизменяемый
	ID string `json:"id"`
	// Title — заголовок
	Title string `json:"title"`
	// Description — описание проблемы
	Description string `json:"description"`
	// Priority — low, medium, high
	Priority Priority `json:"priority"`
	// Status — open, in-progress, closed
	Status Status `json:"status"`
	// UserID — владелец, неизменяемый после создания
	UserID string `json:"userId"`
	// CreatedAt — время создания (ISO-8601)
	CreatedAt string `json:"createdAt"`
	// UpdatedAt — время последнего изменения (ISO-8601)
	UpdatedAt string `json:"updatedAt"`
	// InternalNotes — заметки администратора, несут маркер soft-delete
	InternalNotes string `json:"internalNotes,omitempty"`
	// DeletedByAdmin — вычисляется из InternalNotes, отдельно не пишется
	DeletedByAdmin bool `json:"deletedByAdmin"`
}

// Owner — краткий профиль владельца тикета для админских списков.
type Owner struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

// AdminTicket — тикет с профилем владельца.
// User равен nil, если профиль не удалось получить.
type AdminTicket struct {
	Ticket
	User *Owner `json:"user"`
}

// TicketStats — счётчики тикетов по статусам.
type TicketStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
}

// Add учитывает тикет в счётчиках.
func (s *TicketStats) Add(status Status) {
	s.Total++
	switch status {
	case StatusOpen:
		s.Open++
	case StatusInProgress:
		s.InProgress++
	case StatusClosed:
		s.Closed++
	}
}

// UserTicketStats — статистика тикетов одного пользователя.
type UserTicketStats struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Open   int    `json:"open"`
	Closed int    `json:"closed"`
}

// DashboardStats — статистика для админской панели.
type DashboardStats struct {
	TicketStats
	// Users — общее число профилей (-1, если неизвестно)
	Users int `json:"users"`
	// ByUser — разбивка по владельцам, по убыванию количества
	ByUser []UserTicketStats `json:"byUser"`
}
