package rbac

import (
	"testing"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "пустая строка", raw: "", want: RoleUser},
		{name: "admin", raw: "admin", want: RoleAdmin},
		{name: "регистр и пробелы", raw: "AdMIN ", want: RoleAdmin},
		{name: "опечатка amin", raw: "amin", want: RoleAdmin},
		{name: "administrator", raw: " Administrator", want: RoleAdmin},
		{name: "user", raw: "user", want: RoleUser},
		{name: "superuser", raw: "superuser", want: RoleUser},
		{name: "admins — не admin", raw: "admins", want: RoleUser},
		{name: "пробелы", raw: "   ", want: RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRole(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizeRole(%q) = %q, хотели %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleUser, true},
		{"amin", false},
		{"Admin", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := IsValidRole(tt.role); got != tt.want {
				t.Errorf("IsValidRole(%q) = %v, хотели %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "admin", "user"); got != "admin" {
		t.Errorf("FirstNonEmpty() = %q, хотели admin", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Errorf("FirstNonEmpty() = %q, хотели пустую строку", got)
	}
}
