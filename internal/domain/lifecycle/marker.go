// Пакет lifecycle — жизненный цикл тикета: статусы, приоритеты
// и маркер soft-delete администратора.
//
// Soft-delete хранится внутри internalNotes: у backend нет
// отдельного поля под флаг. Формат маркера — стабильный контракт:
//
//	__deleted_by_admin__:<ISO-8601 время>
//
// Маркер добавляется отдельной строкой в конец заметок (или становится
// всем значением, если заметки пусты).
package lifecycle

import (
	"strings"
	"time"

	"github.com/bigkaa/tickly/internal/domain/model"
)

// DeletedMarker — сентинел soft-delete в internalNotes.
const DeletedMarker = "__deleted_by_admin__"

// MarkerVersion — версия формата маркера.
const MarkerVersion = 1

// IsMarked проверяет наличие маркера (подстрокой, в любом месте заметок).
func IsMarked(notes string) bool {
	return strings.Contains(notes, DeletedMarker)
}

// Mark добавляет маркер soft-delete в заметки.
// Если маркер уже есть — заметки возвращаются без изменений (после trim).
func Mark(notes string, at time.Time) string {
	base := strings.TrimSpace(notes)
	marker := DeletedMarker + ":" + model.FormatTime(at)

	if base == "" {
		return marker
	}
	if IsMarked(base) {
		return base
	}
	return base + "\n" + marker
}

// PreserveMarker сохраняет маркер soft-delete при перезаписи заметок.
// Если в прежних заметках был маркер, а в новых его нет, строка
// маркера из прежних заметок переносится в конец новых.
func PreserveMarker(previous, next string) string {
	if !IsMarked(previous) || IsMarked(next) {
		return next
	}

	line := markerLine(previous)
	base := strings.TrimSpace(next)
	if base == "" {
		return line
	}
	return base + "\n" + line
}

// markerLine извлекает строку, содержащую маркер.
func markerLine(notes string) string {
	for _, line := range strings.Split(notes, "\n") {
		if strings.Contains(line, DeletedMarker) {
			// Маркер мог быть дописан в конец строки без перевода строки
			idx := strings.Index(line, DeletedMarker)
			return strings.TrimSpace(line[idx:])
		}
	}
	return DeletedMarker
}
