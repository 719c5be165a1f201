// Точка входа Tickly — сервис тикетов поддержки.
// Загружает конфигурацию, выбирает хранилище записей (Manta, PostgreSQL
// или память), создаёт сервисный слой и API handlers, запускает
// topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/tickly/internal/api/handlers"
	"github.com/bigkaa/tickly/internal/api/middleware"
	"github.com/bigkaa/tickly/internal/config"
	"github.com/bigkaa/tickly/internal/database"
	"github.com/bigkaa/tickly/internal/manta"
	"github.com/bigkaa/tickly/internal/records"
	"github.com/bigkaa/tickly/internal/records/memstore"
	"github.com/bigkaa/tickly/internal/repository"
	"github.com/bigkaa/tickly/internal/schema"
	"github.com/bigkaa/tickly/internal/server"
	"github.com/bigkaa/tickly/internal/service"
)

func main() {
	// 1. Переменные из .env (если файл есть)
	loaded, err := config.LoadDotEnv(".env")
	if err != nil {
		slog.Error("Ошибка чтения .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Tickly запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store_driver", cfg.StoreDriver),
		slog.Bool("dotenv", loaded),
	)

	if os.Getenv("TICKLY_DEPHEALTH_GROUP") == "" {
		logger.Warn("TICKLY_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx := context.Background()

	// 4. Клиент Manta: records API и auth workflow
	mantaClient := manta.New(
		cfg.MantaURL,
		cfg.MantaAuthURL,
		cfg.MantaSDKKey,
		&http.Client{Timeout: cfg.MantaTimeout},
		logger,
	)
	if cfg.MantaAuthURL == "" {
		logger.Warn("TICKLY_MANTA_AUTH_URL не задан, вход и регистрация недоступны")
	}

	// 5. Хранилище записей
	var (
		store        records.Store
		storeChecker handlers.ReadinessChecker
		targets      service.DephealthTargets
		pool         *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// Адаптер pgxpool → *sql.DB для topologymetrics
		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		store = repository.NewRecordStore(pool)
		storeChecker = database.NewReadinessChecker(pool)
		targets.DB = pgDB
		targets.PostgresURL = cfg.DatabaseURL()

	case config.StoreDriverMemory:
		mem := memstore.New()
		ticketsTable := cfg.TicketsTable
		if ticketsTable == "" {
			ticketsTable = schema.DefaultTicketTables[0]
		}
		mem.CreateTable(ticketsTable)
		mem.CreateTable(cfg.UsersTable)
		store = mem
		logger.Warn("Используется хранилище в памяти, данные не сохраняются между рестартами")

	default:
		store = mantaClient
		storeChecker = manta.NewReadinessChecker(mantaClient, cfg.UsersTable)
		targets.MantaURL = cfg.MantaURL
	}

	// 6. Схема записей: нормализация, запись с вариантами полей, поиск таблицы тикетов
	normalizer := schema.NewNormalizer(cfg.ClosedStatusAlias, nil)
	writer := schema.NewWriter(logger)
	resolver := schema.NewTableResolver(store, cfg.TicketsTable, logger)

	// 7. Services
	ticketTable := service.NewTicketTable(store, resolver, normalizer, writer, logger)
	profileCache := service.NewProfileCache(cfg.ProfileCacheSize, cfg.ProfileCacheTTL)
	usersSvc := service.NewUserService(store, cfg.UsersTable, normalizer, writer, profileCache, logger)
	ticketsSvc := service.NewTicketService(ticketTable, logger)
	adminTicketsSvc := service.NewAdminTicketService(ticketTable, usersSvc, cfg.EnrichConcurrency, logger)
	authSvc := service.NewAuthService(mantaClient, usersSvc, logger)

	// 8. Session middleware
	sessionAuth, err := middleware.NewSessionAuth(
		cfg.JWTJWKSURL,
		cfg.JWKSRefreshInterval,
		nil,
		authSvc,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания session middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session middleware инициализирован",
		slog.Bool("verify_signature", sessionAuth.Verifying()),
	)
	targets.JWKSURL = cfg.JWTJWKSURL

	// 9. Readiness checkers (хранилище + таблица тикетов)
	checks := []handlers.NamedChecker{{Name: "ticketTable", Checker: resolver}}
	if storeChecker != nil {
		checks = append([]handlers.NamedChecker{{Name: "store", Checker: storeChecker}}, checks...)
	}
	healthHandler := handlers.NewHealthHandler(checks...)

	// 10. API handlers
	h := server.Handlers{
		Health:  healthHandler,
		Tickets: handlers.NewTicketHandler(ticketsSvc, logger),
		Admin:   handlers.NewAdminHandler(adminTicketsSvc, usersSvc, logger),
		Auth:    handlers.NewAuthHandler(authSvc, cfg.CookieSecure, logger),
	}

	// 11. topologymetrics — мониторинг зависимостей
	var dephealthSvc *service.DephealthService
	if targets.Empty() {
		logger.Info("topologymetrics отключён: нет внешних зависимостей")
	} else {
		var dephealthErr error
		dephealthSvc, dephealthErr = service.NewDephealthService(
			"tickly",
			cfg.DephealthGroup,
			targets,
			cfg.DephealthCheckInterval,
			logger,
		)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dephealthErr.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
			dephealthSvc = nil
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, h, sessionAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Tickly остановлен")
}
