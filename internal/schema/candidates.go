package schema

import (
	"strings"
	"unicode"

	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/records"
)

// updatedAtKeys — варианты имени поля времени изменения при записи.
var updatedAtKeys = []string{"updatedAt", "updated_at"}

// NoteCandidates — варианты payload для сохранения internalNotes.
// Имена поля заметок те же, что читает Normalizer, в том же порядке.
func NoteCandidates(notes, now string) []records.Record {
	noteKeys := TicketAliases["internalNotes"]
	out := make([]records.Record, 0, len(noteKeys)*len(updatedAtKeys))
	for _, notesKey := range noteKeys {
		for _, tsKey := range updatedAtKeys {
			out = append(out, records.Record{notesKey: notes, tsKey: now})
		}
	}
	return out
}

// StatusCandidates — варианты payload для смены статуса.
// Для closed при заданном closedAlias в конец добавляются варианты
// со значением алиаса.
func StatusCandidates(status model.Status, now, closedAlias string) []records.Record {
	values := []string{string(status)}
	if status == model.StatusClosed && closedAlias != "" {
		values = append(values, closedAlias)
	}

	out := make([]records.Record, 0, len(values)*len(updatedAtKeys))
	for _, v := range values {
		for _, tsKey := range updatedAtKeys {
			out = append(out, records.Record{"status": v, tsKey: now})
		}
	}
	return out
}

// UpdateCandidates — варианты payload для изменения полей владельцем.
// fields — канонические имена (camelCase) и значения.
func UpdateCandidates(fields map[string]any, now string) []records.Record {
	camel := make(records.Record, len(fields)+1)
	snake := make(records.Record, len(fields)+1)
	for k, v := range fields {
		camel[k] = v
		snake[SnakeCase(k)] = v
	}
	camel["updatedAt"] = now
	snake["updated_at"] = now
	return []records.Record{camel, snake}
}

// CreateCandidates — варианты полной записи нового тикета:
// camelCase, snake_case, lowercase.
func CreateCandidates(t model.Ticket) []records.Record {
	camel := records.Record{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"priority":    string(t.Priority),
		"status":      string(t.Status),
		"userId":      t.UserID,
		"createdAt":   t.CreatedAt,
		"updatedAt":   t.UpdatedAt,
	}

	snake := make(records.Record, len(camel))
	lower := make(records.Record, len(camel))
	for k, v := range camel {
		snake[SnakeCase(k)] = v
		lower[strings.ToLower(k)] = v
	}
	return []records.Record{camel, snake, lower}
}

// SnakeCase переводит camelCase в snake_case: userId → user_id.
func SnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
