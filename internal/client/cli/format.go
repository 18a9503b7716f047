package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iudanet/gophnotes/internal/models"
)

// Форматы вывода списка заметок
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q, use text, json or yaml", format)
	}
}

func writeNotes(w io.Writer, format string, notes []models.Note) error {
	if notes == nil {
		notes = []models.Note{}
	}

	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(notes)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(notes); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return writeNotesText(w, notes)
	}
}

func writeNotesText(w io.Writer, notes []models.Note) error {
	var b strings.Builder

	if len(notes) == 0 {
		b.WriteString("No notes found.\n\n")
		b.WriteString("Use 'gophnotes notes add' to create your first note.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Found %d note(s):\n\n", len(notes))
	for i, note := range notes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, note.Title)
		fmt.Fprintf(&b, "   ID:      %s\n", note.ID)
		fmt.Fprintf(&b, "   Content: %s\n", preview(note.Content))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

const previewLen = 60

// preview сворачивает текст заметки в одну короткую строку
func preview(content string) string {
	line := strings.Join(strings.Fields(content), " ")
	runes := []rune(line)
	if len(runes) > previewLen {
		return string(runes[:previewLen]) + "..."
	}
	return line
}
