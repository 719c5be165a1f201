package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/records"
	"github.com/bigkaa/tickly/internal/records/memstore"
	"github.com/bigkaa/tickly/internal/schema"
)

// counterValue возвращает текущее значение Prometheus-счётчика.
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("чтение счётчика: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestProfileCache_GetSet(t *testing.T) {
	cache := NewProfileCache(10, time.Minute)
	owner := &model.Owner{ID: "u1", FullName: "Ann", Email: "ann@example.com", Role: "user"}

	cache.Set("u1", owner)

	got, ok := cache.Get("u1")
	if !ok {
		t.Fatal("ожидался hit для u1")
	}
	if got.Email != "ann@example.com" {
		t.Errorf("email = %q, ожидался ann@example.com", got.Email)
	}

	if _, ok := cache.Get("nonexistent"); ok {
		t.Error("ожидался miss для nonexistent")
	}
}

func TestProfileCache_Counters(t *testing.T) {
	cache := NewProfileCache(10, time.Minute)
	hits := counterValue(t, profileCacheHitsTotal)
	misses := counterValue(t, profileCacheMissesTotal)

	cache.Get("u1")
	cache.Set("u1", &model.Owner{ID: "u1"})
	cache.Get("u1")
	cache.Get("u1")
	cache.Get("u2")

	if d := counterValue(t, profileCacheHitsTotal) - hits; d != 2 {
		t.Errorf("hits += %v, ожидалось 2", d)
	}
	if d := counterValue(t, profileCacheMissesTotal) - misses; d != 2 {
		t.Errorf("misses += %v, ожидалось 2", d)
	}
}

func TestProfileCache_Delete(t *testing.T) {
	cache := NewProfileCache(10, time.Minute)
	cache.Set("u1", &model.Owner{ID: "u1"})

	cache.Delete("u1")

	if _, ok := cache.Get("u1"); ok {
		t.Error("ожидался miss после Delete")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, ожидалось 0", cache.Len())
	}
	// Удаление отсутствующего ключа — не ошибка
	cache.Delete("u1")
}

func TestProfileCache_TTLExpiration(t *testing.T) {
	cache := NewProfileCache(10, 50*time.Millisecond)
	cache.Set("u1", &model.Owner{ID: "u1"})

	if _, ok := cache.Get("u1"); !ok {
		t.Fatal("ожидался hit до истечения TTL")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("u1"); ok {
		t.Error("ожидался miss после истечения TTL")
	}
}

func TestProfileCache_Eviction(t *testing.T) {
	cache := NewProfileCache(2, time.Minute)

	cache.Set("u1", &model.Owner{ID: "u1"})
	cache.Set("u2", &model.Owner{ID: "u2"})
	cache.Set("u3", &model.Owner{ID: "u3"}) // вытесняет u1

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, ожидалось 2", cache.Len())
	}
	if _, ok := cache.Get("u1"); ok {
		t.Error("u1 должен быть вытеснен")
	}
	if _, ok := cache.Get("u3"); !ok {
		t.Error("u3 должен быть в кэше")
	}
}

func TestProfileCache_Update(t *testing.T) {
	cache := NewProfileCache(10, time.Minute)

	cache.Set("u1", &model.Owner{ID: "u1", Role: "user"})
	cache.Set("u1", &model.Owner{ID: "u1", Role: "admin"})

	got, ok := cache.Get("u1")
	if !ok {
		t.Fatal("ожидался hit")
	}
	if got.Role != "admin" {
		t.Errorf("role = %q, ожидался admin", got.Role)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, ожидалось 1", cache.Len())
	}
}

// После смены роли UserService сбрасывает профиль из кэша,
// следующий Owner читает его из хранилища.
func TestProfileCache_RoleChange(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	store := memstore.New()
	store.CreateTable(testUsersTable)
	if err := store.Create(ctx, testUsersTable, []records.Record{
		{"id": "u1", "fullname": "Ann", "email": "ann@example.com", "role": "user"},
	}); err != nil {
		t.Fatalf("создание профиля: %v", err)
	}

	cache := NewProfileCache(10, time.Minute)
	users := NewUserService(store, testUsersTable, schema.NewNormalizer("", nil),
		schema.NewWriter(logger), cache, logger)

	hits := counterValue(t, profileCacheHitsTotal)
	misses := counterValue(t, profileCacheMissesTotal)

	// miss → чтение из хранилища, затем hit
	for range 2 {
		if _, err := users.Owner(ctx, "u1"); err != nil {
			t.Fatalf("Owner() ошибка: %v", err)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, ожидалось 1", cache.Len())
	}

	if err := users.UpdateRole(ctx, "u1", "admin"); err != nil {
		t.Fatalf("UpdateRole() ошибка: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() после смены роли = %d, ожидалось 0", cache.Len())
	}

	owner, err := users.Owner(ctx, "u1")
	if err != nil {
		t.Fatalf("Owner() ошибка: %v", err)
	}
	if owner.Role != "admin" {
		t.Errorf("role = %q, ожидался admin", owner.Role)
	}

	if d := counterValue(t, profileCacheHitsTotal) - hits; d != 1 {
		t.Errorf("hits += %v, ожидалось 1", d)
	}
	if d := counterValue(t, profileCacheMissesTotal) - misses; d != 2 {
		t.Errorf("misses += %v, ожидалось 2", d)
	}
}
