// Пакет handlers — HTTP-обработчики Tickly API.
// Обработчики разбирают запрос, вызывают сервисный слой и переводят
// ошибки сервисов в ответы {"success": false, "error": "..."}.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/tickly/internal/api/errors"
	"github.com/bigkaa/tickly/internal/manta"
	"github.com/bigkaa/tickly/internal/schema"
	"github.com/bigkaa/tickly/internal/service"
)

// maxBodyBytes — максимальный размер тела JSON-запроса.
const maxBodyBytes = 1 << 20

// tableHint — сообщение оператору, когда таблица тикетов недоступна.
const tableHint = "Ticket table is not available for this SDK key. " +
	"Configure MANTA_TICKETS_TABLE in .env to an existing Manta table and restart dev server."

// successResponse — ответ без данных.
type successResponse struct {
	Success bool `json:"success"`
}

var okResponse = successResponse{Success: true}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
// Для прочих ошибок отдаётся сообщение backend (см. clientMessage),
// а если его нет — fallback.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		apierrors.ValidationError(w, verr.Message)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ticket not found")
	case errors.Is(err, service.ErrDeletedByAdmin):
		apierrors.Forbidden(w, "Ticket was deleted by admin and can no longer be modified")
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w, "")
	case errors.Is(err, service.ErrAuthUnavailable):
		apierrors.ServiceUnavailable(w, "Authentication service is not configured")
	case service.IsConfigError(err):
		logger.Error("Таблица тикетов недоступна", slog.String("error", err.Error()))
		apierrors.InternalError(w, tableHint)
	default:
		logger.Error("Ошибка обработки запроса", slog.String("error", err.Error()))
		apierrors.InternalError(w, clientMessage(err, fallback))
	}
}

// clientMessage извлекает из ошибки текст для клиента:
// сообщение Manta, ошибку последнего отклонённого варианта payload
// или fallback. Внутренние префиксы обёрток клиенту не отдаются.
func clientMessage(err error, fallback string) string {
	var exhausted *schema.ExhaustedError
	if errors.As(err, &exhausted) && exhausted.Last != nil {
		if msg := backendMessage(exhausted.Last); msg != "" {
			return msg
		}
		return exhausted.Last.Error()
	}
	if msg := backendMessage(err); msg != "" {
		return msg
	}
	if fallback != "" {
		return fallback
	}
	return "Internal server error"
}

// backendMessage возвращает текст ошибки Manta, если он есть.
func backendMessage(err error) string {
	var apiErr *manta.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
