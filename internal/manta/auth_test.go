package manta

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestClient_Login(t *testing.T) {
	client := setupMockManta(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("путь = %s, ожидается /auth/login", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("SDK-ключ не должен передаваться в auth workflow")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ann@example.com" || body["password"] != "secret" {
			t.Errorf("тело запроса = %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":    "jwt-token",
			"fullName": "Ann Lee",
			"user":     map[string]any{"role": "Admin"},
		})
	})

	resp, err := client.Login(context.Background(), "ann@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	if resp.Token != "jwt-token" {
		t.Errorf("Token = %q", resp.Token)
	}
	if resp.UserRole() != "Admin" {
		t.Errorf("UserRole() = %q, ожидается Admin", resp.UserRole())
	}
	if resp.UserFullName() != "Ann Lee" {
		t.Errorf("UserFullName() = %q", resp.UserFullName())
	}
}

func TestClient_LoginRejected(t *testing.T) {
	client := setupMockManta(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
	})

	_, err := client.Login(context.Background(), "ann@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ошибка = %v, ожидается *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_Signup(t *testing.T) {
	var got map[string]string
	client := setupMockManta(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/signup" {
			t.Errorf("путь = %s, ожидается /auth/signup", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusCreated, map[string]any{"message": "created"})
	})

	_, err := client.Signup(context.Background(), SignupRequest{
		FullName: "Ann Lee", Email: "ann@example.com", Password: "secret",
	})
	if err != nil {
		t.Fatalf("Signup() ошибка: %v", err)
	}
	if got["fullname"] != "Ann Lee" || got["role"] != "user" {
		t.Errorf("тело запроса = %v", got)
	}
}

func TestClient_AuthNotConfigured(t *testing.T) {
	client := New("http://127.0.0.1:1", "", "key", nil, testLogger())
	if client.AuthEnabled() {
		t.Error("AuthEnabled() = true без URL")
	}
	if _, err := client.Login(context.Background(), "a", "b"); !errors.Is(err, ErrAuthNotConfigured) {
		t.Errorf("Login() ошибка = %v, ожидается ErrAuthNotConfigured", err)
	}
}
