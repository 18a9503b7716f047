package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NoteID is an opaque note identifier assigned by the server.
// Servers may encode it as a string, a number or a Mongo extended JSON
// object ({"$oid": "..."}); all of them decode to the same string form.
type NoteID string

// UnmarshalJSON decodes an identifier from any of the supported encodings
func (id *NoteID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to decode note id: %w", err)
	}

	switch val := v.(type) {
	case string:
		*id = NoteID(val)
	case json.Number:
		*id = NoteID(val.String())
	case map[string]any:
		oid, ok := val["$oid"].(string)
		if !ok {
			return fmt.Errorf("unsupported note id object: %s", string(data))
		}
		*id = NoteID(oid)
	default:
		return fmt.Errorf("unsupported note id: %s", string(data))
	}

	return nil
}

// NoteRequest представляет тело запроса на создание или обновление заметки
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Note представляет заметку в том виде, в котором её отдает сервер
type Note struct {
	ID      NoteID `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UnmarshalJSON принимает как поле id, так и _id (ранние версии сервера
// отдавали идентификатор документа MongoDB без переименования)
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      NoteID `json:"id"`
		MongoID NoteID `json:"_id"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.ID = raw.ID
	if n.ID == "" {
		n.ID = raw.MongoID
	}
	n.Title = raw.Title
	n.Content = raw.Content

	return nil
}
