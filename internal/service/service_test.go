package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/tickly/internal/domain/lifecycle"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/records"
	"github.com/bigkaa/tickly/internal/records/memstore"
	"github.com/bigkaa/tickly/internal/schema"
)

const (
	testTicketsTable = "support-tickets"
	testUsersTable   = "tickly-auth"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stepClock — часы, которые сдвигаются на секунду при каждом чтении.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// testEnv — сервисы поверх in-memory хранилища.
// Таблица тикетов принимает только snake_case поля.
type testEnv struct {
	store   *memstore.Store
	tickets *TicketService
	admin   *AdminTicketService
	users   *UserService
	auth    *AuthService
}

func newTestEnv(t *testing.T, store records.Store) *testEnv {
	t.Helper()

	mem := memstore.New()
	mem.CreateTable(testTicketsTable,
		"id", "title", "description", "priority", "status",
		"user_id", "created_at", "updated_at", "internal_notes",
	)
	mem.CreateTable(testUsersTable)
	if store == nil {
		store = mem
	}

	clock := &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	logger := testLogger()
	normalizer := schema.NewNormalizer("", clock.Now)
	writer := schema.NewWriter(logger)
	resolver := schema.NewTableResolver(store, "", logger)
	table := NewTicketTable(store, resolver, normalizer, writer, logger)
	users := NewUserService(store, testUsersTable, normalizer, writer, NewProfileCache(100, time.Minute), logger)

	return &testEnv{
		store:   mem,
		tickets: NewTicketService(table, logger),
		admin:   NewAdminTicketService(table, users, 4, logger),
		users:   users,
		auth:    NewAuthService(nil, users, logger),
	}
}

func (e *testEnv) addUser(t *testing.T, rec records.Record) {
	t.Helper()
	if err := e.store.Create(context.Background(), testUsersTable, []records.Record{rec}); err != nil {
		t.Fatalf("создание профиля: %v", err)
	}
}

func (e *testEnv) createTicket(t *testing.T, title, userID string) *model.Ticket {
	t.Helper()
	ticket, err := e.tickets.Create(context.Background(), CreateTicketInput{
		Title:       title,
		Description: "Описание проблемы " + title,
		Priority:    "medium",
		UserID:      userID,
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	return ticket
}

func TestTicketService_Create(t *testing.T) {
	env := newTestEnv(t, nil)

	ticket, err := env.tickets.Create(context.Background(), CreateTicketInput{
		Title:       "Printer broken",
		Description: "Office printer on 2nd floor jammed",
		Priority:    "high",
		UserID:      "u1",
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if ticket.ID == "" {
		t.Error("ID не должен быть пустым")
	}
	if ticket.Status != model.StatusOpen {
		t.Errorf("Status = %q, ожидается open", ticket.Status)
	}
	if ticket.CreatedAt != ticket.UpdatedAt {
		t.Errorf("CreatedAt %q != UpdatedAt %q", ticket.CreatedAt, ticket.UpdatedAt)
	}

	rows := env.store.Rows(testTicketsTable)
	if len(rows) != 1 {
		t.Fatalf("записей = %d, ожидается 1", len(rows))
	}
	if rows[0]["user_id"] != "u1" || rows[0]["priority"] != "high" {
		t.Errorf("запись сохранена в неверной схеме: %v", rows[0])
	}
}

func TestTicketService_CreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		input   CreateTicketInput
		message string
	}{
		{
			name:    "нет заголовка",
			input:   CreateTicketInput{Description: "long enough", Priority: "low", UserID: "u1"},
			message: "Missing required fields",
		},
		{
			name:    "нет владельца",
			input:   CreateTicketInput{Title: "Title", Description: "long enough", Priority: "low"},
			message: "Missing required fields",
		},
		{
			name:    "короткий заголовок",
			input:   CreateTicketInput{Title: "ab", Description: "long enough", Priority: "low", UserID: "u1"},
			message: "Title must be at least 3 characters",
		},
		{
			name:    "короткое описание",
			input:   CreateTicketInput{Title: "Title", Description: "abc", Priority: "low", UserID: "u1"},
			message: "Description must be at least 5 characters",
		},
		{
			name:    "неизвестный приоритет",
			input:   CreateTicketInput{Title: "Title", Description: "long enough", Priority: "urgent", UserID: "u1"},
			message: "Priority must be one of: low, medium, high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tickets.Create(context.Background(), tt.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ожидается ValidationError, получено %v", err)
			}
			if verr.Message != tt.message {
				t.Errorf("Message = %q, ожидается %q", verr.Message, tt.message)
			}
		})
	}

	if n := len(env.store.Rows(testTicketsTable)); n != 0 {
		t.Errorf("невалидные тикеты сохранены: %d", n)
	}
}

func TestTicketService_ListAndStats(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	first := env.createTicket(t, "First", "u1")
	second := env.createTicket(t, "Second", "u1")
	env.createTicket(t, "Foreign", "u2")

	if err := env.admin.SaveNote(ctx, first.ID, "проверить картридж"); err != nil {
		t.Fatalf("SaveNote() ошибка: %v", err)
	}
	closed := "closed"
	if err := env.tickets.Update(ctx, second.ID, UpdateTicketInput{Status: &closed}); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}

	list, err := env.tickets.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("тикетов = %d, ожидается 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("первым должен идти новый тикет %s, получен %s", second.ID, list[0].ID)
	}
	for _, ticket := range list {
		if ticket.InternalNotes != "" {
			t.Errorf("заметки администратора видны владельцу: %q", ticket.InternalNotes)
		}
	}

	stats, err := env.tickets.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats() ошибка: %v", err)
	}
	if stats.Total != 2 || stats.Open != 1 || stats.Closed != 1 {
		t.Errorf("Stats() = %+v", stats)
	}

	if _, err := env.tickets.List(ctx, "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("List без userId: ожидается ErrValidation, получено %v", err)
	}
}

func TestTicketService_Update(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ticket := env.createTicket(t, "Printer", "u1")

	title := "Printer on fire"
	priority := "HIGH"
	if err := env.tickets.Update(ctx, ticket.ID, UpdateTicketInput{Title: &title, Priority: &priority}); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}

	row := env.store.Rows(testTicketsTable)[0]
	if row["title"] != title || row["priority"] != "high" {
		t.Errorf("запись после обновления: %v", row)
	}
	if row["updated_at"] == row["created_at"] {
		t.Error("updated_at должен измениться")
	}

	if err := env.tickets.Update(ctx, ticket.ID, UpdateTicketInput{}); !errors.Is(err, ErrValidation) {
		t.Errorf("пустое обновление: ожидается ErrValidation, получено %v", err)
	}
	bad := "done"
	if err := env.tickets.Update(ctx, ticket.ID, UpdateTicketInput{Status: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("неверный статус: ожидается ErrValidation, получено %v", err)
	}
	if err := env.tickets.Update(ctx, "missing", UpdateTicketInput{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий тикет: ожидается ErrNotFound, получено %v", err)
	}
}

func TestTicketService_Delete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ticket := env.createTicket(t, "Printer", "u1")

	if err := env.tickets.Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if n := len(env.store.Rows(testTicketsTable)); n != 0 {
		t.Errorf("записей после удаления = %d", n)
	}
	if err := env.tickets.Delete(ctx, ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: ожидается ErrNotFound, получено %v", err)
	}
}

func TestAdminTicketService_SoftDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ticket := env.createTicket(t, "Printer", "u1")

	if err := env.admin.SaveNote(ctx, ticket.ID, "звонили пользователю"); err != nil {
		t.Fatalf("SaveNote() ошибка: %v", err)
	}
	if err := env.admin.SoftDelete(ctx, ticket.ID); err != nil {
		t.Fatalf("SoftDelete() ошибка: %v", err)
	}
	notes := env.store.Rows(testTicketsTable)[0]["internal_notes"]
	if err := env.admin.SoftDelete(ctx, ticket.ID); err != nil {
		t.Fatalf("повторный SoftDelete() ошибка: %v", err)
	}
	if again := env.store.Rows(testTicketsTable)[0]["internal_notes"]; again != notes {
		t.Errorf("повторный SoftDelete изменил заметки: %q → %q", notes, again)
	}

	title := "New title"
	if err := env.tickets.Update(ctx, ticket.ID, UpdateTicketInput{Title: &title}); !errors.Is(err, ErrDeletedByAdmin) {
		t.Errorf("Update() удалённого тикета: ожидается ErrDeletedByAdmin, получено %v", err)
	}
	if err := env.tickets.Delete(ctx, ticket.ID); !errors.Is(err, ErrDeletedByAdmin) {
		t.Errorf("Delete() удалённого тикета: ожидается ErrDeletedByAdmin, получено %v", err)
	}
	if err := env.admin.SetStatus(ctx, ticket.ID, "closed"); !errors.Is(err, ErrDeletedByAdmin) {
		t.Errorf("SetStatus() удалённого тикета: ожидается ErrDeletedByAdmin, получено %v", err)
	}

	got, err := env.admin.Get(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if !got.DeletedByAdmin {
		t.Error("DeletedByAdmin = false, ожидается true")
	}
	if !strings.HasPrefix(got.InternalNotes, "звонили пользователю") {
		t.Errorf("исходная заметка потеряна: %q", got.InternalNotes)
	}

	if err := env.admin.SaveNote(ctx, ticket.ID, "новая заметка"); err != nil {
		t.Fatalf("SaveNote() после удаления ошибка: %v", err)
	}
	got, _ = env.admin.Get(ctx, ticket.ID)
	if !lifecycle.IsMarked(got.InternalNotes) || !got.DeletedByAdmin {
		t.Errorf("SaveNote() потерял маркер удаления: %q", got.InternalNotes)
	}
}

func TestAdminTicketService_SetStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	ticket := env.createTicket(t, "Printer", "u1")

	if err := env.admin.SetStatus(ctx, ticket.ID, "in-progress"); err != nil {
		t.Fatalf("SetStatus() ошибка: %v", err)
	}
	got, _ := env.admin.Get(ctx, ticket.ID)
	if got.Status != model.StatusInProgress {
		t.Errorf("Status = %q, ожидается in-progress", got.Status)
	}

	if err := env.admin.SetStatus(ctx, ticket.ID, "resolved"); !errors.Is(err, ErrValidation) {
		t.Errorf("неизвестный статус: ожидается ErrValidation, получено %v", err)
	}
	if err := env.admin.SetStatus(ctx, "missing", "closed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий тикет: ожидается ErrNotFound, получено %v", err)
	}
}

// failingUsers — хранилище, у которого выборка профиля badID падает.
type failingUsers struct {
	records.Store
	badID string
}

func (f *failingUsers) Fetch(ctx context.Context, q records.Query) (*records.Result, error) {
	if q.Table == testUsersTable {
		for _, v := range q.Where {
			if v == f.badID {
				return nil, errors.New("backend недоступен")
			}
		}
	}
	return f.Store.Fetch(ctx, q)
}

func TestAdminTicketService_ListEnrichment(t *testing.T) {
	mem := memstore.New()
	mem.CreateTable(testTicketsTable)
	mem.CreateTable(testUsersTable)
	env := newTestEnv(t, &failingUsers{Store: mem, badID: "u-bad"})
	env.store = mem

	env.addUser(t, records.Record{"id": "u1", "fullname": "Ann Lee", "email": "ann@example.com", "role": "amin"})
	good := env.createTicket(t, "Printer", "u1")
	bad := env.createTicket(t, "Scanner", "u-bad")
	orphan := env.createTicket(t, "Monitor", "u-none")

	list, err := env.admin.List(context.Background())
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("тикетов = %d, ожидается 3", len(list))
	}

	byID := make(map[string]model.AdminTicket, len(list))
	for _, item := range list {
		byID[item.ID] = item
	}
	owner := byID[good.ID].User
	if owner == nil {
		t.Fatal("профиль владельца не загружен")
	}
	if owner.FullName != "Ann Lee" || owner.Role != "admin" {
		t.Errorf("профиль = %+v", owner)
	}
	if byID[bad.ID].User != nil {
		t.Error("ошибка профиля должна оставлять user = nil")
	}
	if byID[orphan.ID].User != nil {
		t.Error("отсутствующий профиль должен оставлять user = nil")
	}
}

func TestAdminTicketService_Dashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.addUser(t, records.Record{"id": "u1", "fullname": "Ann Lee", "email": "ann@example.com"})
	env.addUser(t, records.Record{"id": "u2", "email": "bob@example.com"})

	a := env.createTicket(t, "One", "u1")
	env.createTicket(t, "Two", "u1")
	env.createTicket(t, "Three", "u2")
	if err := env.admin.SetStatus(ctx, a.ID, "closed"); err != nil {
		t.Fatalf("SetStatus() ошибка: %v", err)
	}

	stats, err := env.admin.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard() ошибка: %v", err)
	}
	if stats.Total != 3 || stats.Open != 2 || stats.Closed != 1 {
		t.Errorf("счётчики = %+v", stats.TicketStats)
	}
	if stats.Users != 2 {
		t.Errorf("Users = %d, ожидается 2", stats.Users)
	}
	if len(stats.ByUser) != 2 {
		t.Fatalf("ByUser = %d записей, ожидается 2", len(stats.ByUser))
	}
	if stats.ByUser[0].Name != "Ann Lee" || stats.ByUser[0].Count != 2 || stats.ByUser[0].Closed != 1 {
		t.Errorf("ByUser[0] = %+v", stats.ByUser[0])
	}
	if stats.ByUser[1].Name != "bob@example.com" {
		t.Errorf("ByUser[1].Name = %q, ожидается email", stats.ByUser[1].Name)
	}
}

func TestUserService_ListSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 11; i++ {
		env.addUser(t, records.Record{
			"id":        fmt.Sprintf("a%d", i),
			"fullname":  fmt.Sprintf("Anna %d", i),
			"email":     fmt.Sprintf("user%d@example.com", i),
			"role":      "user",
			"createdAt": model.FormatTime(base.Add(time.Duration(i) * time.Hour)),
		})
	}
	env.addUser(t, records.Record{"id": "j", "fullname": "Jo", "email": "JoANNe@example.com", "createdAt": model.FormatTime(base)})
	env.addUser(t, records.Record{"id": "b", "fullname": "Bob", "email": "bob@example.com", "createdAt": model.FormatTime(base)})

	page, err := env.users.List(context.Background(), 1, "ann")
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(page.Users) != UsersPageSize {
		t.Errorf("пользователей на странице = %d, ожидается %d", len(page.Users), UsersPageSize)
	}
	if page.Meta == nil || page.Meta.TotalPages != 2 || page.Meta.Total != 12 {
		t.Fatalf("Meta = %+v", page.Meta)
	}
	if page.Users[0].ID != "a10" {
		t.Errorf("первым должен идти новый профиль a10, получен %s", page.Users[0].ID)
	}
	for _, u := range page.Users {
		if !strings.Contains(strings.ToLower(u.FullName+u.Email), "ann") {
			t.Errorf("профиль %+v не соответствует запросу", u)
		}
	}

	second, err := env.users.List(context.Background(), 2, "ann")
	if err != nil {
		t.Fatalf("List() страница 2 ошибка: %v", err)
	}
	if len(second.Users) != 2 {
		t.Errorf("на второй странице %d профилей, ожидается 2", len(second.Users))
	}
}

func TestUserService_UpdateRole(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.addUser(t, records.Record{"id": "u1", "fullname": "Ann", "email": "ann@example.com", "role": "user"})

	owner, err := env.users.Owner(ctx, "u1")
	if err != nil || owner.Role != "user" {
		t.Fatalf("Owner() = %+v, %v", owner, err)
	}

	if err := env.users.UpdateRole(ctx, "u1", "admin"); err != nil {
		t.Fatalf("UpdateRole() ошибка: %v", err)
	}
	owner, err = env.users.Owner(ctx, "u1")
	if err != nil {
		t.Fatalf("Owner() ошибка: %v", err)
	}
	if owner.Role != "admin" {
		t.Errorf("роль в кэше не обновилась: %q", owner.Role)
	}

	invalid := []struct{ id, role string }{
		{"", "admin"},
		{"u1", "superuser"},
		{"u1", "Admin"},
	}
	for _, tt := range invalid {
		if err := env.users.UpdateRole(ctx, tt.id, tt.role); !errors.Is(err, ErrValidation) {
			t.Errorf("UpdateRole(%q, %q): ожидается ErrValidation, получено %v", tt.id, tt.role, err)
		}
	}
}

func TestAuthService_Session(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.addUser(t, records.Record{"user_id": "p1", "first_name": "Ann", "last_name": "Lee", "email": "ann@example.com", "userRole": "Administrator"})

	tests := []struct {
		name     string
		claims   TokenClaims
		wantID   string
		wantName string
		wantRole string
	}{
		{
			name:     "данные профиля",
			claims:   TokenClaims{Email: "ann@example.com", Subject: "sub-1", Role: "user"},
			wantID:   "p1",
			wantName: "Ann Lee",
			wantRole: "admin",
		},
		{
			name:     "профиля нет, данные токена",
			claims:   TokenClaims{Email: "bob@example.com", UserID: "u-bob", Name: "Bob", Role: "amin"},
			wantID:   "u-bob",
			wantName: "Bob",
			wantRole: "admin",
		},
		{
			name:     "только email",
			claims:   TokenClaims{Email: "eve@example.com"},
			wantID:   "eve@example.com",
			wantName: "eve@example.com",
			wantRole: "user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := env.auth.Session(ctx, tt.claims, "tok")
			if err != nil {
				t.Fatalf("Session() ошибка: %v", err)
			}
			if session.User.ID != tt.wantID {
				t.Errorf("ID = %q, ожидается %q", session.User.ID, tt.wantID)
			}
			if session.User.FullName == nil || *session.User.FullName != tt.wantName {
				t.Errorf("FullName = %v, ожидается %q", session.User.FullName, tt.wantName)
			}
			if session.User.Role != tt.wantRole {
				t.Errorf("Role = %q, ожидается %q", session.User.Role, tt.wantRole)
			}
			if session.Token != "tok" {
				t.Errorf("Token = %q", session.Token)
			}
		})
	}

	if _, err := env.auth.Session(ctx, TokenClaims{Subject: "sub"}, "tok"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("токен без email: ожидается ErrUnauthorized, получено %v", err)
	}
}

func TestIsConfigError(t *testing.T) {
	env := newTestEnv(t, memstore.New())

	_, err := env.tickets.List(context.Background(), "u1")
	if !IsConfigError(err) {
		t.Errorf("нет таблицы тикетов: ожидается ошибка конфигурации, получено %v", err)
	}
	if IsConfigError(ErrNotFound) {
		t.Error("ErrNotFound не является ошибкой конфигурации")
	}
}
