// Пакет config — загрузка и валидация конфигурации Tickly
// из переменных окружения (и опционального .env файла).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Драйверы хранилища записей.
const (
	StoreDriverManta    = "manta"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config содержит все параметры конфигурации Tickly.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Разрешённые CORS origins (пусто — CORS отключён)
	CORSOrigins []string
	// Лимит запросов login/signup в минуту с одного IP
	LoginRateLimit int

	// --- Хранилище записей ---

	// Драйвер хранилища: manta, postgres, memory
	StoreDriver string
	// Явно заданная таблица тикетов (первый кандидат резолвера)
	TicketsTable string
	// Таблица профилей пользователей
	UsersTable string
	// Альтернативное значение статуса closed (например, resolved)
	ClosedStatusAlias string

	// --- Manta ---

	// Базовый URL Manta records API
	MantaURL string
	// SDK-ключ Manta (обязателен для драйвера manta)
	MantaSDKKey string
	// URL auth workflow Manta (login/signup)
	MantaAuthURL string
	// Таймаут HTTP-запросов к Manta
	MantaTimeout time.Duration

	// --- PostgreSQL (драйвер postgres) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Сессии ---

	// URL JWKS для проверки подписи токена (пусто — только декодирование payload)
	JWTJWKSURL string
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Флаг Secure для cookie сессии
	CookieSecure bool

	// --- Профили владельцев тикетов ---

	// Максимальный размер LRU-кэша профилей
	ProfileCacheSize int
	// TTL записи кэша профилей
	ProfileCacheTTL time.Duration
	// Максимум параллельных запросов профилей при обогащении
	EnrichConcurrency int

	// --- topologymetrics ---

	// Группа сервиса в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// LoadDotEnv загружает переменные из файла .env, если он существует.
// Уже заданные переменные окружения не перезаписываются.
// Возвращает true, если файл был прочитан.
func LoadDotEnv(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// TICKLY_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("TICKLY_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("TICKLY_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// TICKLY_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("TICKLY_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("TICKLY_LOG_LEVEL: %w", err)
	}

	// TICKLY_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("TICKLY_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("TICKLY_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// TICKLY_CORS_ORIGINS — список origins через запятую (опционально)
	cfg.CORSOrigins = parseCSV(getEnvDefault("TICKLY_CORS_ORIGINS", ""))

	// TICKLY_LOGIN_RATE_LIMIT — запросов login/signup в минуту (по умолчанию 20)
	cfg.LoginRateLimit, err = getEnvInt("TICKLY_LOGIN_RATE_LIMIT", 20)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.LoginRateLimit < 0 {
		return nil, fmt.Errorf("TICKLY_LOGIN_RATE_LIMIT: значение %d не может быть отрицательным", cfg.LoginRateLimit)
	}

	// --- Хранилище записей ---

	// TICKLY_STORE_DRIVER — драйвер хранилища (по умолчанию manta)
	cfg.StoreDriver = strings.ToLower(getEnvDefault("TICKLY_STORE_DRIVER", StoreDriverManta))
	switch cfg.StoreDriver {
	case StoreDriverManta, StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("TICKLY_STORE_DRIVER: недопустимое значение %q, допустимые: manta, postgres, memory", cfg.StoreDriver)
	}

	// MANTA_TICKETS_TABLE — явная таблица тикетов (опционально)
	cfg.TicketsTable = strings.TrimSpace(getEnvDefault("MANTA_TICKETS_TABLE", ""))

	// TICKLY_USERS_TABLE — таблица профилей (по умолчанию tickly-auth)
	cfg.UsersTable = getEnvDefault("TICKLY_USERS_TABLE", "tickly-auth")

	// TICKLY_CLOSED_STATUS_ALIAS — альтернативное значение closed (опционально)
	cfg.ClosedStatusAlias = strings.ToLower(strings.TrimSpace(getEnvDefault("TICKLY_CLOSED_STATUS_ALIAS", "")))
	if cfg.ClosedStatusAlias == "closed" {
		cfg.ClosedStatusAlias = ""
	}

	// --- Manta ---

	// TICKLY_MANTA_URL — базовый URL records API
	cfg.MantaURL = strings.TrimRight(getEnvDefault("TICKLY_MANTA_URL", "https://api.mantahq.com/api/sdk/v1"), "/")
	if _, err := url.ParseRequestURI(cfg.MantaURL); err != nil {
		return nil, fmt.Errorf("TICKLY_MANTA_URL: некорректный URL %q", cfg.MantaURL)
	}

	// MANTAHQ_SDK_KEY — обязателен для драйвера manta
	if cfg.StoreDriver == StoreDriverManta {
		cfg.MantaSDKKey, err = getEnvRequired("MANTAHQ_SDK_KEY")
		if err != nil {
			return nil, err
		}
	} else {
		cfg.MantaSDKKey = getEnvDefault("MANTAHQ_SDK_KEY", "")
	}

	// TICKLY_MANTA_AUTH_URL — URL auth workflow (опционально, без него login/signup недоступны)
	cfg.MantaAuthURL = strings.TrimRight(getEnvDefault("TICKLY_MANTA_AUTH_URL", ""), "/")

	// TICKLY_MANTA_TIMEOUT — таймаут запросов к Manta (по умолчанию 15s)
	cfg.MantaTimeout, err = getEnvDuration("TICKLY_MANTA_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_MANTA_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	if err := loadDatabase(cfg); err != nil {
		return nil, err
	}

	// --- Сессии ---

	// TICKLY_JWT_JWKS_URL — JWKS для проверки подписи (опционально)
	cfg.JWTJWKSURL = getEnvDefault("TICKLY_JWT_JWKS_URL", "")

	// TICKLY_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 15m)
	cfg.JWKSRefreshInterval, err = getEnvDuration("TICKLY_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// TICKLY_COOKIE_SECURE — флаг Secure cookie (по умолчанию true)
	cfg.CookieSecure, err = getEnvBool("TICKLY_COOKIE_SECURE", true)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_COOKIE_SECURE: %w", err)
	}

	// --- Профили ---

	// TICKLY_PROFILE_CACHE_SIZE — размер кэша профилей (по умолчанию 1000)
	cfg.ProfileCacheSize, err = getEnvInt("TICKLY_PROFILE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_PROFILE_CACHE_SIZE: %w", err)
	}
	if cfg.ProfileCacheSize < 1 {
		return nil, fmt.Errorf("TICKLY_PROFILE_CACHE_SIZE: значение %d должно быть положительным", cfg.ProfileCacheSize)
	}

	// TICKLY_PROFILE_CACHE_TTL — TTL профилей (по умолчанию 5m)
	cfg.ProfileCacheTTL, err = getEnvDuration("TICKLY_PROFILE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_PROFILE_CACHE_TTL: %w", err)
	}

	// TICKLY_ENRICH_CONCURRENCY — параллельность обогащения (по умолчанию 8)
	cfg.EnrichConcurrency, err = getEnvInt("TICKLY_ENRICH_CONCURRENCY", 8)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_ENRICH_CONCURRENCY: %w", err)
	}
	if cfg.EnrichConcurrency < 1 || cfg.EnrichConcurrency > 64 {
		return nil, fmt.Errorf("TICKLY_ENRICH_CONCURRENCY: значение %d вне допустимого диапазона 1-64", cfg.EnrichConcurrency)
	}

	// --- topologymetrics ---

	// TICKLY_DEPHEALTH_GROUP — группа в метриках (по умолчанию tickly)
	cfg.DephealthGroup = getEnvDefault("TICKLY_DEPHEALTH_GROUP", "tickly")

	// TICKLY_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("TICKLY_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// TICKLY_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("TICKLY_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TICKLY_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDatabase читает параметры PostgreSQL.
// Обязательные поля проверяются только для драйвера postgres.
func loadDatabase(cfg *Config) error {
	var err error
	required := cfg.StoreDriver == StoreDriverPostgres

	readString := func(key string) (string, error) {
		if required {
			return getEnvRequired(key)
		}
		return getEnvDefault(key, ""), nil
	}

	if cfg.DBHost, err = readString("TICKLY_DB_HOST"); err != nil {
		return err
	}
	cfg.DBPort, err = getEnvInt("TICKLY_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("TICKLY_DB_PORT: %w", err)
	}
	if cfg.DBName, err = readString("TICKLY_DB_NAME"); err != nil {
		return err
	}
	if cfg.DBUser, err = readString("TICKLY_DB_USER"); err != nil {
		return err
	}
	if cfg.DBPassword, err = readString("TICKLY_DB_PASSWORD"); err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("TICKLY_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("TICKLY_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
