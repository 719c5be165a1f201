// dephealth.go — мониторинг зависимостей через topologymetrics SDK.
//
// Зависимости Tickly:
//   - Manta records API — HTTP checker (драйвер manta, critical)
//   - PostgreSQL — SQL checker через pgxpool (драйвер postgres, critical)
//   - JWKS endpoint — HTTP checker, если включена проверка подписи токенов
//
// Метрики публикуются на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для Manta и JWKS
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthTargets — адреса зависимостей. Пустые поля не мониторятся.
type DephealthTargets struct {
	// MantaURL — базовый URL Manta records API
	MantaURL string
	// DB — *sql.DB из stdlib.OpenDBFromPool(); PostgresURL — для лейблов
	DB          *sql.DB
	PostgresURL string
	// JWKSURL — URL JWKS для проверки подписи токенов
	JWKSURL string
}

// Empty сообщает, что мониторить нечего (драйвер memory без JWKS).
func (t DephealthTargets) Empty() bool {
	return t.MantaURL == "" && t.DB == nil && t.JWKSURL == ""
}

// DephealthService — мониторинг зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{dephealth.WithLogger(logger)}

	if targets.MantaURL != "" {
		opts = append(opts, dephealth.HTTP("manta-api",
			dephealth.FromURL(targets.MantaURL),
			dephealth.WithHTTPHealthPath(healthPath(targets.MantaURL)),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		))
	}
	if targets.DB != nil {
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(targets.DB)),
			dephealth.FromURL(targets.PostgresURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		))
	}
	if targets.JWKSURL != "" {
		opts = append(opts, dephealth.HTTP("jwks",
			dephealth.FromURL(targets.JWKSURL),
			dephealth.WithHTTPHealthPath(healthPath(targets.JWKSURL)),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(false),
			dephealth.WithHTTPTLSSkipVerify(true), // Dev-среда: self-signed сертификаты
		))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// healthPath возвращает path URL для HTTP-проверки или "/health", если path пуст.
func healthPath(raw string) string {
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return "/health"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
