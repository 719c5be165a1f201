package lifecycle

import (
	"errors"
	"strings"

	"github.com/bigkaa/tickly/internal/domain/model"
)

// ErrDeletedByAdmin — тикет помечен администратором как удалённый,
// любые изменения запрещены.
var ErrDeletedByAdmin = errors.New("ticket was deleted by admin")

// StatusAliases — альтернативные написания статусов, встречающиеся в данных.
// Значение "resolved" всегда читается как closed.
var StatusAliases = map[string]model.Status{
	"open":        model.StatusOpen,
	"new":         model.StatusOpen,
	"in-progress": model.StatusInProgress,
	"inprogress":  model.StatusInProgress,
	"progress":    model.StatusInProgress,
	"closed":      model.StatusClosed,
	"resolved":    model.StatusClosed,
	"done":        model.StatusClosed,
}

// canonicalKey приводит строку к виду ключа StatusAliases:
// нижний регистр, '_' и пробелы заменены на '-'.
func canonicalKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.Join(strings.Fields(s), "-")
}

// ParseStatus разбирает сырой статус. closedAlias — дополнительное
// значение, означающее closed (из конфигурации), может быть пустым.
// Возвращает false для нераспознанных значений.
func ParseStatus(raw, closedAlias string) (model.Status, bool) {
	key := canonicalKey(raw)
	if key == "" {
		return "", false
	}
	if closedAlias != "" && key == canonicalKey(closedAlias) {
		return model.StatusClosed, true
	}
	st, ok := StatusAliases[key]
	return st, ok
}

// ParseStrictStatus принимает только канонические значения статуса (вход API).
func ParseStrictStatus(raw string) (model.Status, bool) {
	switch st := model.Status(raw); st {
	case model.StatusOpen, model.StatusInProgress, model.StatusClosed:
		return st, true
	}
	return "", false
}

// ParsePriority разбирает приоритет (без учёта регистра).
func ParsePriority(raw string) (model.Priority, bool) {
	switch p := model.Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
		return p, true
	}
	return "", false
}

// CheckMutable проверяет, что тикет можно изменять.
// Любой переход между статусами разрешён, пока тикет не удалён администратором.
func CheckMutable(t *model.Ticket) error {
	if t.DeletedByAdmin {
		return ErrDeletedByAdmin
	}
	return nil
}
