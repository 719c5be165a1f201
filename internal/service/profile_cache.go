// profile_cache.go — LRU-кэш профилей владельцев тикетов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/tickly/internal/domain/model"
)

// Prometheus-метрики кэша профилей.
var (
	profileCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickly_profile_cache_hits_total",
		Help: "Общее количество попаданий в кэш профилей.",
	})
	profileCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickly_profile_cache_misses_total",
		Help: "Общее количество промахов кэша профилей.",
	})
)

// ProfileCache — кэш профилей по id пользователя.
// Кэш локален для экземпляра сервиса.
type ProfileCache struct {
	cache *expirable.LRU[string, *model.Owner]
}

// NewProfileCache создаёт кэш с максимальным размером maxSize и TTL.
func NewProfileCache(maxSize int, ttl time.Duration) *ProfileCache {
	return &ProfileCache{cache: expirable.NewLRU[string, *model.Owner](maxSize, nil, ttl)}
}

// Get возвращает профиль из кэша и обновляет метрики hit/miss.
func (c *ProfileCache) Get(userID string) (*model.Owner, bool) {
	val, ok := c.cache.Get(userID)
	if ok {
		profileCacheHitsTotal.Inc()
		return val, true
	}
	profileCacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет профиль.
func (c *ProfileCache) Set(userID string, owner *model.Owner) {
	c.cache.Add(userID, owner)
}

// Delete удаляет профиль (после смены роли).
func (c *ProfileCache) Delete(userID string) {
	c.cache.Remove(userID)
}

// Len возвращает количество записей в кэше.
func (c *ProfileCache) Len() int {
	return c.cache.Len()
}
