package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophnotes/internal/models"
)

func (a *App) newNotesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "Manage notes",
	}

	cmd.AddCommand(
		a.newNotesListCommand(),
		a.newNotesShowCommand(),
		a.newNotesAddCommand(),
		a.newNotesEditCommand(),
		a.newNotesDeleteCommand(),
	)

	return cmd
}

func (a *App) newNotesListCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if err := a.startSession(cmd.Context()); err != nil {
				return err
			}
			return writeNotes(a.io, format, a.engine.Notes())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")

	return cmd
}

func (a *App) newNotesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.startSession(cmd.Context()); err != nil {
				return err
			}
			return a.showNote(models.NoteID(args[0]))
		},
	}
}

func (a *App) newNotesAddCommand() *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.startSession(cmd.Context()); err != nil {
				return err
			}
			return a.addNote(cmd.Context(), title, content)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "note content")

	return cmd
}

func (a *App) newNotesEditCommand() *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.startSession(cmd.Context()); err != nil {
				return err
			}
			return a.editNote(cmd.Context(), models.NoteID(args[0]), title, content)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title (default: keep)")
	cmd.Flags().StringVarP(&content, "content", "c", "", "new content (default: keep)")

	return cmd
}

func (a *App) newNotesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.startSession(cmd.Context()); err != nil {
				return err
			}
			return reported(a.engine.Remove(cmd.Context(), models.NoteID(args[0])))
		},
	}
}

// startSession определяет пользователя и загружает его заметки
func (a *App) startSession(ctx context.Context) error {
	if _, err := a.engine.Start(ctx); err != nil {
		return reported(err)
	}
	return nil
}

func (a *App) showNote(id models.NoteID) error {
	note, ok := a.engine.Note(id)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return noteDetails.Execute(a.io, note)
}

func (a *App) addNote(ctx context.Context, title, content string) error {
	var err error
	if title, err = a.prompt(title, "Title: "); err != nil {
		return err
	}
	if content, err = a.prompt(content, "Content: "); err != nil {
		return err
	}

	note, err := a.engine.Create(ctx, title, content)
	if err != nil {
		return reported(err)
	}

	a.io.Printf("ID: %s\n", note.ID)
	return nil
}

// editNote обновляет заметку. Пустые title/content запрашиваются у
// пользователя; пустой ответ оставляет текущее значение.
func (a *App) editNote(ctx context.Context, id models.NoteID, title, content string) error {
	current, ok := a.engine.Note(id)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if title == "" && content == "" {
		var err error
		if title, err = a.promptDefault("Title", current.Title); err != nil {
			return err
		}
		if content, err = a.promptDefault("Content", current.Content); err != nil {
			return err
		}
	}
	if title == "" {
		title = current.Title
	}
	if content == "" {
		content = current.Content
	}

	if _, err := a.engine.Update(ctx, id, title, content); err != nil {
		return reported(err)
	}
	return nil
}

func (a *App) promptDefault(label, current string) (string, error) {
	input, err := a.io.ReadInput(fmt.Sprintf("%s [%s]: ", label, preview(current)))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if input == "" {
		return current, nil
	}
	return input, nil
}
