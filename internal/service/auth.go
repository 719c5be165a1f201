// auth.go — вход, регистрация и вычисление сессии по cookie.
// Пароли и токены выдаёт auth workflow Manta; сервис хранит только cookie.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/domain/rbac"
	"github.com/bigkaa/tickly/internal/manta"
	"github.com/bigkaa/tickly/internal/schema"
)

// TokenClaims — данные пользователя из payload токена сессии.
type TokenClaims struct {
	Subject  string
	ID       string
	UserID   string
	Email    string
	Role     string
	FullName string
	Name     string
}

// SignupInput — данные регистрации.
type SignupInput struct {
	FullName string
	Email    string
	Password string
}

// AuthService — аутентификация через auth workflow и профили пользователей.
type AuthService struct {
	client *manta.Client
	users  *UserService
	logger *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(client *manta.Client, users *UserService, logger *slog.Logger) *AuthService {
	return &AuthService{
		client: client,
		users:  users,
		logger: logger.With(slog.String("component", "auth_service")),
	}
}

// Login выполняет вход. Возвращает сессию с токеном для cookie.
// Отказ backend возвращается как *manta.APIError.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError("Email and password are required")
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, s.wrap("вход", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("вход %s: auth workflow не вернул токен", email)
	}

	session := &model.Session{
		User: model.SessionUser{
			Email: email,
			Role:  rbac.NormalizeRole(resp.UserRole()),
		},
		Token: resp.Token,
	}
	if name := resp.UserFullName(); name != "" {
		session.User.FullName = &name
	}

	s.logger.Info("Пользователь вошёл",
		slog.String("email", email),
		slog.String("role", session.User.Role),
	)
	return session, nil
}

// Signup регистрирует пользователя с ролью user.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) error {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return validationError("Missing required fields")
	}

	_, err := s.client.Signup(ctx, manta.SignupRequest{
		FullName: in.FullName,
		Email:    in.Email,
		Password: in.Password,
		Role:     rbac.RoleUser,
	})
	if err != nil {
		return s.wrap("регистрация", err)
	}

	s.logger.Info("Пользователь зарегистрирован", slog.String("email", in.Email))
	return nil
}

// Session вычисляет сессию из claims токена и профиля пользователя.
// ErrUnauthorized, если в токене нет email.
func (s *AuthService) Session(ctx context.Context, claims TokenClaims, token string) (*model.Session, error) {
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, ErrUnauthorized
	}

	profile, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	name := rbac.FirstNonEmpty(schema.FullName(profile), claims.FullName, claims.Name, email)
	session := &model.Session{
		User: model.SessionUser{
			ID:       rbac.FirstNonEmpty(schema.RawUserID(profile), claims.ID, claims.UserID, claims.Subject, email),
			Email:    email,
			FullName: &name,
			Role:     rbac.NormalizeRole(rbac.FirstNonEmpty(schema.RawRole(profile), claims.Role)),
		},
		Token: token,
	}
	return session, nil
}

// wrap переводит отсутствие настройки auth workflow в ErrAuthUnavailable.
func (s *AuthService) wrap(op string, err error) error {
	if errors.Is(err, manta.ErrAuthNotConfigured) {
		return fmt.Errorf("%s: %w", op, ErrAuthUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
