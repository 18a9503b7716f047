package models

// NoteID уникальный идентификатор заметки, назначаемый сервером.
// Клиент никогда не генерирует его сам.
type NoteID string

// Note представляет заметку пользователя
type Note struct {
	ID      NoteID `json:"id" yaml:"id"`           // ID идентификатор, выданный сервером при создании
	Title   string `json:"title" yaml:"title"`     // Title заголовок заметки
	Content string `json:"content" yaml:"content"` // Content текст заметки
}
