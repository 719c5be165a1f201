// session.go — сессия пользователя из cookie "token".
// Токен выдаёт auth workflow Manta. По умолчанию payload читается без
// проверки подписи; при заданном JWKS URL подпись проверяется через JWKS.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/tickly/internal/api/errors"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/domain/rbac"
	"github.com/bigkaa/tickly/internal/service"
)

// CookieName — имя cookie с токеном сессии.
const CookieName = "token"

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeySession — ключ для *model.Session в контексте запроса.
const ContextKeySession contextKey = "session"

// ErrInvalidToken — токен не удалось разобрать или проверить.
var ErrInvalidToken = errors.New("невалидный токен")

// signingMethods — алгоритмы подписи, принимаемые при проверке через JWKS.
var signingMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "EdDSA"}

// SessionResolver вычисляет сессию по claims токена.
type SessionResolver interface {
	Session(ctx context.Context, claims service.TokenClaims, token string) (*model.Session, error)
}

// SessionAuth — middleware сессии.
type SessionAuth struct {
	// jwks == nil — подпись не проверяется
	jwks     keyfunc.Keyfunc
	resolver SessionResolver
	logger   *slog.Logger
}

// NewSessionAuth создаёт middleware сессии.
// jwksURL — URL JWKS для проверки подписи; пустая строка отключает проверку.
// refreshInterval — интервал обновления ключей JWKS.
func NewSessionAuth(
	jwksURL string,
	refreshInterval time.Duration,
	httpClient *http.Client,
	resolver SessionResolver,
	logger *slog.Logger,
) (*SessionAuth, error) {
	if jwksURL == "" {
		logger.Warn("TICKLY_JWT_JWKS_URL не задан, подпись токенов не проверяется")
		return NewSessionAuthWithKeyfunc(nil, resolver, logger), nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// NoErrorReturnFirstHTTPReq — стартуем даже если JWKS ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewSessionAuthWithKeyfunc(k, resolver, logger), nil
}

// NewSessionAuthWithKeyfunc создаёт middleware с предоставленной keyfunc.
// kf == nil — payload читается без проверки подписи.
func NewSessionAuthWithKeyfunc(kf keyfunc.Keyfunc, resolver SessionResolver, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		jwks:     kf,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "session_auth")),
	}
}

// Verifying сообщает, проверяется ли подпись токенов.
func (s *SessionAuth) Verifying() bool {
	return s.jwks != nil
}

// ParseToken извлекает claims из токена.
// Истёкший токен (exp в прошлом) отклоняется в обоих режимах.
func (s *SessionAuth) ParseToken(ctx context.Context, token string) (service.TokenClaims, error) {
	claims := jwt.MapClaims{}

	if s.jwks != nil {
		parsed, err := jwt.ParseWithClaims(token, claims, s.jwks.KeyfuncCtx(ctx),
			jwt.WithValidMethods(signingMethods),
		)
		if err != nil || !parsed.Valid {
			return service.TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return service.TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if err := jwt.NewValidator().Validate(claims); err != nil {
			return service.TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	return service.TokenClaims{
		Subject:  claimString(claims, "sub"),
		ID:       claimString(claims, "id"),
		UserID:   claimString(claims, "userId"),
		Email:    claimString(claims, "email"),
		Role:     claimString(claims, "role"),
		FullName: claimString(claims, "fullName"),
		Name:     claimString(claims, "name"),
	}, nil
}

// claimString возвращает значение claim строкой. Числа форматируются без экспоненты.
func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Middleware помещает сессию в контекст, если cookie содержит валидный токен.
// Запрос без сессии проходит дальше; доступ проверяют RequireSession и RequireAdmin.
func (s *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := s.ParseToken(r.Context(), cookie.Value)
			if err != nil {
				s.logger.Debug("Токен сессии отклонён",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				next.ServeHTTP(w, r)
				return
			}

			session, err := s.resolver.Session(r.Context(), claims, cookie.Value)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					next.ServeHTTP(w, r)
					return
				}
				s.logger.Error("Ошибка вычисления сессии",
					slog.String("email", claims.Email),
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает сессию из контекста запроса.
// Возвращает nil, если сессии нет.
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(ContextKeySession).(*model.Session)
	return session
}

// RequireSession возвращает 401, если сессии нет.
// Должен использоваться ПОСЛЕ SessionAuth.Middleware().
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			apierrors.Unauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin пропускает только сессии с ролью admin.
// 401 без сессии, 403 для остальных ролей.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil {
			apierrors.Unauthorized(w, "Unauthorized")
			return
		}
		if !rbac.IsAdmin(session.User.Role) {
			apierrors.Forbidden(w, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie устанавливает cookie с токеном.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie удаляет cookie с токеном.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
