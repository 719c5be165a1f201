// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"

	"github.com/bigkaa/tickly/internal/domain/lifecycle"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUnauthorized — нет действующей сессии.
	ErrUnauthorized = errors.New("сессия отсутствует")
	// ErrAuthUnavailable — auth workflow не настроен.
	ErrAuthUnavailable = errors.New("сервис аутентификации не настроен")
	// ErrDeletedByAdmin — тикет удалён администратором, изменения запрещены.
	ErrDeletedByAdmin = lifecycle.ErrDeletedByAdmin
)

// ValidationError — ошибка валидации с сообщением для клиента.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationError(msg string) error {
	return &ValidationError{Message: msg}
}
