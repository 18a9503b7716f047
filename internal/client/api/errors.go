package api

import (
	"fmt"
	"net/http"
)

// DefaultErrorMessage используется, когда сервер не прислал текст ошибки
const DefaultErrorMessage = "An error occurred"

// Error описывает неуспешный ответ сервера или ошибку транспорта.
// StatusCode == 0 означает, что ответ от сервера не был получен.
type Error struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized сообщает, что сервер отклонил токен (401 или 403)
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// UserMessage возвращает текст для показа пользователю
func (e *Error) UserMessage() string {
	if e.Message == "" {
		return DefaultErrorMessage
	}
	return e.Message
}
