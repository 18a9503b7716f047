package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/iudanet/gophnotes/internal/models"
)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 4
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
)

// EmailPattern повторяет серверную проверку формата email: что-то@что-то.что-то
var EmailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Error описывает отклоненное локально поле.
// errors.Is(err, models.ErrValidation) истинно для любой ошибки этого типа.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error {
	return models.ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateUsername проверяет, что username не короче MinUsernameLen символов
func ValidateUsername(username string) error {
	if username == "" {
		return invalid("username", "username cannot be empty")
	}

	if len([]rune(username)) < MinUsernameLen {
		return invalid("username", "username must be at least %d characters long", MinUsernameLen)
	}

	return nil
}

// ValidateEmail проверяет формат email
func ValidateEmail(email string) error {
	if email == "" {
		return invalid("email", "email cannot be empty")
	}

	if !EmailPattern.MatchString(email) {
		return invalid("email", "invalid email format")
	}

	return nil
}

// ValidatePassword проверяет сложность пароля при регистрации:
// минимум MinPasswordLen символов, хотя бы одна цифра, одна строчная
// и одна заглавная буква
func ValidatePassword(password string) error {
	if password == "" {
		return invalid("password", "password cannot be empty")
	}

	if len([]rune(password)) < MinPasswordLen {
		return invalid("password", "password must be at least %d characters long", MinPasswordLen)
	}

	var hasDigit, hasLower, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}

	if !hasDigit || !hasLower || !hasUpper {
		return invalid("password", "password must include uppercase and lowercase letters and numbers")
	}

	return nil
}

// ValidateCredentials проверяет поля формы входа. Сложность пароля здесь
// не проверяется: её контролирует только регистрация.
func ValidateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return invalid("username", "username cannot be empty")
	}
	if password == "" {
		return invalid("password", "password cannot be empty")
	}
	return nil
}

// ValidateNote проверяет, что у заметки есть заголовок и текст
func ValidateNote(title, content string) error {
	if title == "" {
		return invalid("title", "please input the title of the note")
	}
	if content == "" {
		return invalid("content", "please input the content of the note")
	}
	return nil
}
