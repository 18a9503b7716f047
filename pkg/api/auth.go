package api

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username string `json:"username"` // username пользователя (минимум 4 символа)
	Email    string `json:"email"`    // email пользователя
	Password string `json:"password"` // пароль в открытом виде, сервер хеширует его сам
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"` // username пользователя
	Password string `json:"password"` // пароль пользователя
}

// LoginResponse представляет ответ с токеном доступа
type LoginResponse struct {
	AccessToken string `json:"access_token"`      // JWT access token
	Username    string `json:"username"`          // username, под которым выполнен вход
	Message     string `json:"message,omitempty"` // сообщение сервера
}

// IdentityResponse представляет ответ защищенного эндпоинта /protected
type IdentityResponse struct {
	Username string `json:"username"`
}

// MessageResponse представляет ответ, содержащий только сообщение сервера
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой.
// Разные слои сервера кладут текст в разные поля: обработчики в message,
// JWT-middleware в msg.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`   // описание ошибки
	Message string `json:"message,omitempty"` // сообщение для пользователя
	Msg     string `json:"msg,omitempty"`     // сообщение JWT-middleware
}

// Text возвращает первое непустое текстовое поле ответа
func (e ErrorResponse) Text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Msg != "":
		return e.Msg
	default:
		return e.Error
	}
}
