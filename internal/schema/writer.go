package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bigkaa/tickly/internal/records"
)

// ErrCandidatesExhausted — ни один вариант payload не был принят.
var ErrCandidatesExhausted = errors.New("no candidate payload was accepted")

// ExhaustedError — перебор вариантов завершился без успеха.
// Last — ошибка последнего отклонённого варианта (nil, если вариантов не было).
type ExhaustedError struct {
	Op   string
	Last error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrCandidatesExhausted)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrCandidatesExhausted, e.Last)
}

// Unwrap позволяет проверять ErrCandidatesExhausted и класс последней ошибки.
func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrCandidatesExhausted}
	}
	return []error{ErrCandidatesExhausted, e.Last}
}

// WriteFunc выполняет одну попытку записи варианта payload.
type WriteFunc func(ctx context.Context, payload records.Record) error

// Writer перебирает варианты payload до первого принятого backend.
// Ошибка "unknown field" переводит к следующему варианту, любая другая
// прерывает перебор. Попытки выполняются строго последовательно.
type Writer struct {
	logger *slog.Logger
}

// NewWriter создаёт Writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger.With(slog.String("component", "schema_writer"))}
}

// Write пробует варианты по порядку. Возвращает индекс принятого варианта.
// op — имя операции для логов и метрик.
func (w *Writer) Write(ctx context.Context, op string, candidates []records.Record, fn WriteFunc) (int, error) {
	var lastErr error

	for i, payload := range candidates {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		label := strconv.Itoa(i)
		err := fn(ctx, payload)
		if err == nil {
			writeAttemptsTotal.WithLabelValues(op, label, resultAccepted).Inc()
			if i > 0 {
				w.logger.Debug("Принят альтернативный вариант payload",
					slog.String("op", op),
					slog.Int("candidate", i),
				)
			}
			return i, nil
		}

		if !errors.Is(err, records.ErrUnknownField) {
			writeAttemptsTotal.WithLabelValues(op, label, resultError).Inc()
			return -1, err
		}

		writeAttemptsTotal.WithLabelValues(op, label, resultUnknownField).Inc()
		lastErr = err
	}

	candidatesExhaustedTotal.WithLabelValues(op).Inc()
	if lastErr != nil {
		w.logger.Warn("Ни один вариант payload не принят",
			slog.String("op", op),
			slog.Int("candidates", len(candidates)),
			slog.String("last_error", lastErr.Error()),
		)
	}
	return -1, &ExhaustedError{Op: op, Last: lastErr}
}

// FetchFunc выполняет выборку с указанным фильтром.
type FetchFunc func(ctx context.Context, where records.Record) (*records.Result, error)

// FetchByAlias выполняет выборку, перебирая варианты имени ключа фильтра.
// "unknown field" — следующий вариант; другая ошибка прерывает перебор.
// Пустой результат тоже ведёт к следующему варианту (у схемы без
// ограничений неверный ключ просто ничего не находит). Если ни один
// вариант не дал записей, возвращается пустой результат последнего
// успешного запроса.
func (w *Writer) FetchByAlias(ctx context.Context, op string, keys []string, value any, fn FetchFunc) (*records.Result, error) {
	var (
		lastErr   error
		lastEmpty *records.Result
	)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := fn(ctx, records.Record{key: value})
		if err != nil {
			if errors.Is(err, records.ErrUnknownField) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if len(res.Data) > 0 {
			return res, nil
		}
		lastEmpty = res
	}

	if lastEmpty != nil {
		return lastEmpty, nil
	}
	candidatesExhaustedTotal.WithLabelValues(op).Inc()
	return nil, &ExhaustedError{Op: op, Last: lastErr}
}
