// Пакет rbac — определение роли пользователя Tickly.
// Ролей две: admin и user. Любое нераспознанное значение
// (включая пустое) трактуется как user: роль можно получить
// только явным распознаваемым значением.
package rbac

import "strings"

// Роли в порядке возрастания привилегий.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// adminSpellings — написания роли admin, встречающиеся в профилях.
// "amin" — опечатка, закрепившаяся в существующих данных.
var adminSpellings = map[string]bool{
	"admin":         true,
	"amin":          true,
	"administrator": true,
}

// NormalizeRole приводит сырое значение роли к admin или user.
func NormalizeRole(raw string) string {
	if adminSpellings[strings.ToLower(strings.TrimSpace(raw))] {
		return RoleAdmin
	}
	return RoleUser
}

// IsAdmin проверяет, что нормализованная роль — admin.
func IsAdmin(raw string) bool {
	return NormalizeRole(raw) == RoleAdmin
}

// IsValidRole проверяет, является ли строка допустимой канонической ролью.
// Используется для входных данных API, где опечатки не принимаются.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// FirstNonEmpty возвращает первое непустое (после trim) значение.
// Роль и имя пользователя приходят из нескольких источников
// (профиль, ответ auth workflow, claims токена).
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}
