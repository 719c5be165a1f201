package service

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для database/sql
	"github.com/prometheus/client_golang/prometheus"
)

func TestHealthPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "без path", raw: "http://manta:8080", want: "/health"},
		{name: "корневой path", raw: "http://manta:8080/", want: "/"},
		{name: "path JWKS", raw: "https://keycloak:8443/realms/tickly/protocol/openid-connect/certs",
			want: "/realms/tickly/protocol/openid-connect/certs"},
		{name: "path с query", raw: "http://manta:8080/api/health?full=1", want: "/api/health"},
		{name: "некорректный URL", raw: "http://[::1", want: "/health"},
		{name: "пустая строка", raw: "", want: "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := healthPath(tt.raw); got != tt.want {
				t.Errorf("healthPath(%q) = %q, ожидался %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDephealthTargets_Empty(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name    string
		targets DephealthTargets
		want    bool
	}{
		{name: "пусто", targets: DephealthTargets{}, want: true},
		{name: "только PostgresURL без DB", targets: DephealthTargets{PostgresURL: "postgres://db:5432/tickly"}, want: true},
		{name: "Manta", targets: DephealthTargets{MantaURL: "http://manta:8080"}, want: false},
		{name: "PostgreSQL", targets: DephealthTargets{DB: db, PostgresURL: "postgres://db:5432/tickly"}, want: false},
		{name: "JWKS", targets: DephealthTargets{JWKSURL: "https://keycloak:8443/certs"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.targets.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, ожидался %v", got, tt.want)
			}
		})
	}
}

func TestNewDephealthServiceWithRegisterer(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name    string
		targets DephealthTargets
	}{
		{name: "Manta", targets: DephealthTargets{MantaURL: "http://manta:8080"}},
		{name: "JWKS", targets: DephealthTargets{JWKSURL: "https://keycloak:8443/realms/tickly/certs"}},
		{name: "Manta и JWKS", targets: DephealthTargets{
			MantaURL: "http://manta:8080/health",
			JWKSURL:  "https://keycloak:8443/realms/tickly/certs",
		}},
		{name: "PostgreSQL", targets: DephealthTargets{
			DB:          db,
			PostgresURL: "postgres://tickly:secret@db:5432/tickly",
		}},
		{name: "PostgreSQL и JWKS", targets: DephealthTargets{
			DB:          db,
			PostgresURL: "postgres://tickly:secret@db:5432/tickly",
			JWKSURL:     "https://keycloak:8443/realms/tickly/certs",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			ds, err := NewDephealthServiceWithRegisterer("tickly", "tickly-dev",
				tt.targets, 15*time.Second, testLogger(), reg)
			if err != nil {
				t.Fatalf("NewDephealthServiceWithRegisterer() error: %v", err)
			}
			if ds == nil {
				t.Fatal("сервис = nil")
			}
			// До Start проверки не выполнялись
			if health := ds.Health(); len(health) != 0 {
				t.Errorf("Health() до Start = %v, ожидалось пусто", health)
			}
		})
	}
}

func TestNewDephealthServiceWithRegisterer_InvalidName(t *testing.T) {
	tests := []struct {
		name      string
		serviceID string
		group     string
	}{
		{name: "заглавные буквы в имени", serviceID: "Tickly", group: "tickly-dev"},
		{name: "подчёркивание в группе", serviceID: "tickly", group: "tickly_dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDephealthServiceWithRegisterer(tt.serviceID, tt.group,
				DephealthTargets{MantaURL: "http://manta:8080"}, 15*time.Second, testLogger(),
				prometheus.NewRegistry())
			if err == nil {
				t.Error("ожидалась ошибка для некорректного имени")
			}
		})
	}
}

// openTestDB открывает *sql.DB без подключения к серверу.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", "postgres://tickly:secret@db:5432/tickly")
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
