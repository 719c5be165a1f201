// metrics.go — Prometheus HTTP метрики Tickly.
// Регистрирует метрики: tickly_http_requests_total, tickly_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickly_http_requests_total",
			Help: "Общее количество HTTP-запросов к Tickly",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tickly_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Tickly в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath заменяет id тикета в пути на {id}, чтобы
// кардинальность лейблов не росла с числом тикетов.
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/tickets",
		"/api/tickets/stats",
		"/api/admin/tickets",
		"/api/admin/stats",
		"/api/admin/users",
		"/api/admin/users/update-role",
		"/api/login",
		"/api/signup",
		"/api/logout",
		"/api/checkAuth":
		return path
	}

	prefixes := []struct {
		prefix string
		result string
	}{
		{"/api/admin/tickets/", "/api/admin/tickets/{id}"},
		{"/api/tickets/", "/api/tickets/{id}"},
	}
	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(path, p.prefix)
		if ok && rest != "" && !strings.Contains(rest, "/") {
			return p.result
		}
	}

	return "other"
}
