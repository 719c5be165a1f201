// Пакет errors — ответы с ошибками в формате Tickly API.
// Единый формат: {"success": false, "error": "..."}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// errorBody — тело ответа ошибки.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError записывает ответ ошибки с указанным статусом и сообщением.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Success: false, Error: message})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// Unauthorized — 401 нет сессии.
// Пустое сообщение даёт тело {"success": false} без поля error.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false}` + "\n"))
		return
	}
	WriteError(w, http.StatusUnauthorized, message)
}

// Forbidden — 403 недостаточно прав или ресурс заблокирован.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// TooManyRequests — 429 превышен лимит запросов.
func TooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// ServiceUnavailable — 503 зависимость не настроена или недоступна.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, message)
}
