// users.go — профили пользователей: список для администратора,
// смена роли, поиск профиля по id и email.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/domain/rbac"
	"github.com/bigkaa/tickly/internal/records"
	"github.com/bigkaa/tickly/internal/schema"
)

// UsersPageSize — размер страницы списка пользователей.
const UsersPageSize = 10

// userListFields — поля профиля в списке пользователей.
var userListFields = []string{"id", "fullname", "email", "role", "createdAt"}

// userSearchColumns — колонки поиска пользователей.
var userSearchColumns = []string{"fullname", "email"}

// UserService — работа с таблицей профилей.
type UserService struct {
	store      records.Store
	table      string
	normalizer *schema.Normalizer
	writer     *schema.Writer
	cache      *ProfileCache
	logger     *slog.Logger
}

// NewUserService создаёт сервис профилей.
// cache может быть nil — тогда профили не кэшируются.
func NewUserService(
	store records.Store,
	table string,
	normalizer *schema.Normalizer,
	writer *schema.Writer,
	cache *ProfileCache,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		store:      store,
		table:      table,
		normalizer: normalizer,
		writer:     writer,
		cache:      cache,
		logger:     logger.With(slog.String("component", "user_service")),
	}
}

// List возвращает страницу пользователей (новые первыми) с поиском
// по имени и email без учёта регистра.
func (s *UserService) List(ctx context.Context, page int, query string) (*model.UsersPage, error) {
	if page < 1 {
		page = 1
	}
	q := records.Query{
		Table:   s.table,
		Fields:  userListFields,
		Page:    page,
		List:    UsersPageSize,
		OrderBy: "createdAt",
		Order:   records.OrderDesc,
	}
	if query = strings.TrimSpace(query); query != "" {
		q.Search = &records.Search{Columns: userSearchColumns, Query: query}
	}

	res, err := s.store.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("выборка пользователей: %w", err)
	}

	out := &model.UsersPage{Users: make([]model.User, 0, len(res.Data))}
	for _, raw := range res.Data {
		out.Users = append(out.Users, s.normalizer.User(raw))
	}
	if res.Meta != nil {
		out.Meta = &model.PageMeta{
			Page:       res.Meta.Page,
			List:       res.Meta.List,
			Total:      res.Meta.Total,
			TotalPages: res.Meta.TotalPages,
		}
	}
	return out, nil
}

// UpdateRole меняет роль пользователя. Допустимы только admin и user.
func (s *UserService) UpdateRole(ctx context.Context, userID, newRole string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || !rbac.IsValidRole(newRole) {
		return validationError("Invalid payload")
	}

	err := s.store.Update(ctx, s.table, records.Record{"id": userID}, records.Record{"role": newRole})
	if err != nil {
		return fmt.Errorf("смена роли пользователя %s: %w", userID, err)
	}
	if s.cache != nil {
		s.cache.Delete(userID)
	}

	s.logger.Info("Роль пользователя изменена",
		slog.String("user_id", userID),
		slog.String("role", newRole),
	)
	return nil
}

// Count возвращает общее число профилей или -1, если backend его не сообщил.
func (s *UserService) Count(ctx context.Context) (int, error) {
	res, err := s.store.Fetch(ctx, records.Query{Table: s.table, Fields: []string{"id"}, Page: 1, List: 1})
	if err != nil {
		return -1, fmt.Errorf("подсчёт пользователей: %w", err)
	}
	if res.Meta == nil {
		return -1, nil
	}
	return res.Meta.Total, nil
}

// Owner возвращает краткий профиль по id пользователя (через кэш).
// ErrNotFound, если профиля нет.
func (s *UserService) Owner(ctx context.Context, userID string) (*model.Owner, error) {
	if s.cache != nil {
		if owner, ok := s.cache.Get(userID); ok {
			return owner, nil
		}
	}

	res, err := s.writer.FetchByAlias(ctx, "get_profile", schema.UserAliases["id"], userID,
		func(ctx context.Context, where records.Record) (*records.Result, error) {
			return s.store.Fetch(ctx, records.Query{Table: s.table, Where: where, List: 1})
		})
	if err != nil {
		return nil, fmt.Errorf("профиль %s: %w", userID, err)
	}
	if len(res.Data) == 0 {
		return nil, ErrNotFound
	}

	owner := s.normalizer.Owner(res.Data[0])
	if s.cache != nil {
		s.cache.Set(userID, owner)
	}
	return owner, nil
}

// ByEmail возвращает сырую запись профиля по email или nil, если её нет.
func (s *UserService) ByEmail(ctx context.Context, email string) (records.Record, error) {
	res, err := s.store.Fetch(ctx, records.Query{
		Table: s.table,
		Where: records.Record{"email": email},
		List:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("профиль по email: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, nil
	}
	return res.Data[0], nil
}
