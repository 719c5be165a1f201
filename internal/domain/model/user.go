package model

// User — профиль пользователя из таблицы профилей.
type User struct {
	// ID — идентификатор профиля
	ID string `json:"id"`
	// Email — уникальный адрес
	Email string `json:"email"`
	// FullName — отображаемое имя
	FullName string `json:"fullName"`
	// Role — admin или user (после нормализации)
	Role string `json:"role"`
	// CreatedAt — время регистрации, nil если неизвестно
	CreatedAt *string `json:"createdAt"`
}

// SessionUser — пользователь текущей сессии.
type SessionUser struct {
	ID       string  `json:"id,omitempty"`
	Email    string  `json:"email"`
	FullName *string `json:"fullName"`
	Role     string  `json:"role"`
}

// Session — сессия, вычисленная из cookie и профиля.
// На сервере не хранится.
type Session struct {
	User  SessionUser `json:"user"`
	Token string      `json:"token,omitempty"`
}

// UsersPage — страница списка пользователей.
type UsersPage struct {
	Users []User `json:"users"`
	// Meta — метаданные пагинации backend, nil если backend их не вернул
	Meta *PageMeta `json:"meta"`
}

// PageMeta — метаданные пагинации.
type PageMeta struct {
	Page       int `json:"page"`
	List       int `json:"list"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
