package manta

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/bigkaa/tickly/internal/records"
)

// recordsRequest — тело запроса к records API.
type recordsRequest struct {
	Table   string          `json:"table"`
	Fields  []string        `json:"fields,omitempty"`
	Where   records.Record  `json:"where,omitempty"`
	Page    int             `json:"page,omitempty"`
	List    int             `json:"list,omitempty"`
	OrderBy string          `json:"orderBy,omitempty"`
	Order   string          `json:"order,omitempty"`
	Search  *records.Search `json:"search,omitempty"`
	Data    any             `json:"data,omitempty"`
}

// envelope — общий конверт ответа Manta.
// status встречается и как bool, и как строка ("success"/"error").
type envelope struct {
	Status  json.RawMessage `json:"status"`
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Meta    *records.Meta   `json:"meta"`
}

// ok сообщает, признал ли backend операцию успешной.
// Конверт без status и success считается успешным.
func (e *envelope) ok() bool {
	if e.Success != nil && !*e.Success {
		return false
	}
	raw := strings.TrimSpace(string(e.Status))
	switch strings.ToLower(strings.Trim(raw, `"`)) {
	case "", "null", "true", "ok", "success":
		return true
	default:
		return false
	}
}

// rows декодирует data: массив записей или одиночный объект.
func (e *envelope) rows() ([]records.Record, error) {
	raw := bytes.TrimSpace(e.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var one records.Record
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return []records.Record{one}, nil
	}
	var many []records.Record
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

// message возвращает текст ошибки из конверта.
func (e *envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// AuthUser — вложенный объект пользователя в ответе auth workflow.
type AuthUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Fullname string `json:"fullname"`
	Role     string `json:"role"`
}

// AuthResponse — ответ auth workflow на login/signup.
type AuthResponse struct {
	Token    string    `json:"token"`
	Role     string    `json:"role"`
	FullName string    `json:"fullName"`
	Message  string    `json:"message"`
	User     *AuthUser `json:"user"`
}

// UserRole возвращает роль из user.role, затем из role.
func (r *AuthResponse) UserRole() string {
	if r.User != nil && r.User.Role != "" {
		return r.User.Role
	}
	return r.Role
}

// UserFullName возвращает имя пользователя из fullName, затем из user.
func (r *AuthResponse) UserFullName() string {
	if r.FullName != "" {
		return r.FullName
	}
	if r.User != nil {
		if r.User.FullName != "" {
			return r.User.FullName
		}
		return r.User.Fullname
	}
	return ""
}

// SignupRequest — данные регистрации.
type SignupRequest struct {
	FullName string
	Email    string
	Password string
	Role     string
}
