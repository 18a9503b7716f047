package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophnotes/internal/models"
)

const shellHelp = `Commands:
  login                 log in
  register              create an account
  logout                log out
  status                show the session status
  whoami                ask the server who you are
  list [text|json|yaml] list notes
  refresh               reload notes from the server
  show <id>             show a note
  add                   create a note
  edit <id>             update a note
  delete <id>           delete a note
  help                  show this help
  exit                  leave the shell`

func (a *App) newShellCommand() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: notes are loaded once and kept in sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.MetricsAddr = metricsAddr
			}
			return a.runShell(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")

	return cmd
}

func (a *App) runShell(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr := a.cfg.MetricsAddr; addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, addr, a.logger); err != nil {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	unsubscribe := a.store.Subscribe(func(state models.SessionState) {
		if state == models.Anonymous {
			a.io.Println("Session ended. Use 'login' to sign in again.")
		}
	})
	defer unsubscribe()

	a.io.Println("GophNotes shell. Type 'help' for commands.")
	if a.store.State() == models.Authenticated {
		_ = a.startSession(ctx)
	}

	for {
		line, err := a.io.ReadInput("gophnotes> ")
		if errors.Is(err, io.EOF) {
			a.io.Println("")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}

		if err := a.shellCommand(ctx, fields[0], fields[1:]); err != nil && !isReported(err) {
			a.io.Printf("Error: %v\n", err)
		}
	}
}

func (a *App) shellCommand(ctx context.Context, name string, args []string) error {
	switch name {
	case "help":
		a.io.Println(shellHelp)
		return nil
	case "login":
		if err := a.runLogin(ctx, ""); err != nil {
			return err
		}
		return a.startSession(ctx)
	case "register":
		return a.runRegister(ctx, "", "")
	case "logout":
		return a.store.Logout(ctx)
	case "status":
		a.printStatus()
		return nil
	case "whoami":
		return a.runWhoami(ctx)
	case "refresh":
		return reported(a.engine.Refresh(ctx))
	case "list":
		format := formatText
		if len(args) > 0 {
			format = args[0]
		}
		if err := validateFormat(format); err != nil {
			return err
		}
		return writeNotes(a.io, format, a.engine.Notes())
	case "add":
		return a.addNote(ctx, "", "")
	}

	// команды с аргументом <id>
	if len(args) != 1 {
		if name == "show" || name == "edit" || name == "delete" {
			return fmt.Errorf("usage: %s <id>", name)
		}
		return fmt.Errorf("unknown command %q, type 'help'", name)
	}

	id := models.NoteID(args[0])
	switch name {
	case "show":
		return a.showNote(id)
	case "edit":
		return a.editNote(ctx, id, "", "")
	case "delete":
		return reported(a.engine.Remove(ctx, id))
	default:
		return fmt.Errorf("unknown command %q, type 'help'", name)
	}
}
