package schema

import (
	"strings"
	"time"

	"github.com/bigkaa/tickly/internal/domain/lifecycle"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/domain/rbac"
	"github.com/bigkaa/tickly/internal/records"
)

// AliasVersion — версия таблицы алиасов полей.
const AliasVersion = 1

// TicketAliases — сырые имена полей тикета в порядке приоритета
// (camelCase, snake_case, lowercase).
var TicketAliases = map[string][]string{
	"id":             {"id", "ticketId", "ticket_id"},
	"title":          {"title"},
	"description":    {"description"},
	"priority":       {"priority"},
	"status":         {"status"},
	"userId":         {"userId", "user_id", "userid"},
	"createdAt":      {"createdAt", "created_at", "createdat"},
	"updatedAt":      {"updatedAt", "updated_at", "updatedat"},
	"internalNotes":  {"internalNotes", "internal_notes", "internalnotes", "notes"},
	"deletedByAdmin": {"deletedByAdmin", "deleted_by_admin", "deletedbyadmin"},
}

// UserAliases — сырые имена полей профиля пользователя.
// Имя дополнительно собирается из first_name + last_name.
var UserAliases = map[string][]string{
	"id":        {"id", "user_id", "userId"},
	"email":     {"email"},
	"fullName":  {"fullName", "fullname", "full_name", "name"},
	"role":      {"role", "userRole", "user_role"},
	"createdAt": {"createdAt", "created_at"},
}

// UserIDWhereKeys — варианты ключа владельца для фильтрации тикетов.
var UserIDWhereKeys = TicketAliases["userId"]

// Normalizer приводит сырые записи к каноническим моделям.
// Результат зависит только от входной записи и часов now.
type Normalizer struct {
	closedAlias string
	now         func() time.Time
}

// NewNormalizer создаёт нормализатор. closedAlias — дополнительное
// значение статуса closed; now — источник текущего времени для
// отсутствующих временных меток (nil — time.Now).
func NewNormalizer(closedAlias string, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{closedAlias: closedAlias, now: now}
}

// Now возвращает текущее время нормализатора.
func (n *Normalizer) Now() time.Time {
	return n.now()
}

// ClosedAlias возвращает настроенный алиас closed.
func (n *Normalizer) ClosedAlias() string {
	return n.closedAlias
}

// Ticket нормализует сырую запись тикета.
func (n *Normalizer) Ticket(raw records.Record) model.Ticket {
	t := model.Ticket{
		ID:            firstString(raw, TicketAliases["id"]),
		Title:         firstString(raw, TicketAliases["title"]),
		Description:   firstString(raw, TicketAliases["description"]),
		UserID:        firstString(raw, TicketAliases["userId"]),
		CreatedAt:     firstString(raw, TicketAliases["createdAt"]),
		UpdatedAt:     firstString(raw, TicketAliases["updatedAt"]),
		InternalNotes: firstString(raw, TicketAliases["internalNotes"]),
		Status:        model.StatusOpen,
		Priority:      model.PriorityMedium,
	}

	if st, ok := lifecycle.ParseStatus(firstString(raw, TicketAliases["status"]), n.closedAlias); ok {
		t.Status = st
	}
	if p, ok := lifecycle.ParsePriority(firstString(raw, TicketAliases["priority"])); ok {
		t.Priority = p
	}

	if t.CreatedAt == "" {
		t.CreatedAt = model.FormatTime(n.now())
	}
	if t.UpdatedAt == "" {
		t.UpdatedAt = t.CreatedAt
	}

	t.DeletedByAdmin = lifecycle.IsMarked(t.InternalNotes) || firstBool(raw, TicketAliases["deletedByAdmin"])
	return t
}

// User нормализует сырую запись профиля.
func (n *Normalizer) User(raw records.Record) model.User {
	u := model.User{
		ID:       firstString(raw, UserAliases["id"]),
		Email:    firstString(raw, UserAliases["email"]),
		FullName: FullName(raw),
		Role:     rbac.NormalizeRole(firstString(raw, UserAliases["role"])),
	}
	if created := firstString(raw, UserAliases["createdAt"]); created != "" {
		u.CreatedAt = &created
	}
	return u
}

// Owner возвращает краткий профиль владельца из сырой записи.
func (n *Normalizer) Owner(raw records.Record) *model.Owner {
	u := n.User(raw)
	return &model.Owner{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// FullName собирает имя профиля: алиасы fullName, затем first_name + last_name.
// Пустая строка, если ничего нет.
func FullName(raw records.Record) string {
	if name := firstString(raw, UserAliases["fullName"]); name != "" {
		return name
	}
	first := firstString(raw, []string{"first_name", "firstName"})
	if first == "" {
		return ""
	}
	last := firstString(raw, []string{"last_name", "lastName"})
	return strings.TrimSpace(first + " " + last)
}

// RawRole возвращает сырую (ненормализованную) роль профиля.
func RawRole(raw records.Record) string {
	return firstString(raw, UserAliases["role"])
}

// RawUserID возвращает идентификатор профиля по алиасам.
func RawUserID(raw records.Record) string {
	return firstString(raw, UserAliases["id"])
}

// firstString возвращает первое непустое значение из списка алиасов.
func firstString(raw records.Record, aliases []string) string {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s := records.ValueString(v); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// firstBool проверяет, что хотя бы один алиас содержит истинное значение.
func firstBool(raw records.Record, aliases []string) bool {
	for _, key := range aliases {
		switch v := raw[key].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if strings.EqualFold(strings.TrimSpace(v), "true") {
				return true
			}
		}
	}
	return false
}
