package models

// Credential представляет bearer-токен текущей сессии.
// Наличие Credential означает, что пользователь аутентифицирован.
type Credential struct {
	Token    string `json:"token"`              // Token непрозрачный bearer-токен
	Username string `json:"username,omitempty"` // Username имя, которое сервер вернул при входе
}

// Identity представляет пользователя, которому принадлежит токен
type Identity struct {
	Username string `json:"username"`
}

// SessionState состояние сессии клиента
type SessionState int

const (
	// Anonymous нет действующего токена
	Anonymous SessionState = iota
	// Authenticated токен есть и не был отклонен сервером
	Authenticated
)

func (s SessionState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}
