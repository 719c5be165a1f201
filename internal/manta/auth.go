package manta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrAuthNotConfigured — URL auth workflow не задан.
var ErrAuthNotConfigured = errors.New("auth workflow URL is not configured")

// AuthEnabled сообщает, настроен ли auth workflow.
func (c *Client) AuthEnabled() bool {
	return c.authURL != ""
}

// Login выполняет вход через auth workflow.
// Ответ с не-2xx статусом возвращается как *APIError со статусом и
// сообщением backend.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	return c.authCall(ctx, "login", body)
}

// Signup регистрирует пользователя через auth workflow.
// Пустая роль заменяется на "user".
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	role := req.Role
	if role == "" {
		role = "user"
	}
	body := map[string]string{
		"fullname": req.FullName,
		"email":    req.Email,
		"password": req.Password,
		"role":     role,
	}
	return c.authCall(ctx, "signup", body)
}

// authCall выполняет запрос к {authURL}/{op}.
func (c *Client) authCall(ctx context.Context, op string, body any) (*AuthResponse, error) {
	if !c.AuthEnabled() {
		return nil, ErrAuthNotConfigured
	}

	resp, err := c.doJSON(ctx, c.authURL+"/"+op, body, false)
	if err != nil {
		return nil, fmt.Errorf("manta %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("manta %s: чтение ответа: %w", op, err)
	}

	var out AuthResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Message
		if decodeErr != nil {
			msg = strings.TrimSpace(string(raw))
		}
		c.logger.Info("Auth workflow отклонил запрос",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
		)
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("manta %s: декодирование ответа: %w", op, decodeErr)
	}
	return &out, nil
}
