// metrics.go — Prometheus метрики разрешения схемы backend.
// Позволяют увидеть, какие варианты имён полей и таблиц реально принимаются.
package schema

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты попытки записи.
const (
	resultAccepted     = "accepted"
	resultUnknownField = "unknown_field"
	resultError        = "error"
)

var (
	// tableChecksTotal — проверки таблиц-кандидатов резолвером.
	tableChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickly_schema_table_checks_total",
			Help: "Количество проверок таблиц-кандидатов тикетов",
		},
		[]string{"table", "result"},
	)

	// writeAttemptsTotal — попытки записи вариантов payload.
	writeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickly_schema_write_attempts_total",
			Help: "Количество попыток записи вариантов payload по операциям",
		},
		[]string{"op", "candidate", "result"},
	)

	// candidatesExhaustedTotal — операции, для которых не подошёл ни один вариант.
	candidatesExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickly_schema_candidates_exhausted_total",
			Help: "Количество операций, исчерпавших все варианты payload",
		},
		[]string{"op"},
	)
)
