package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophnotes/internal/models"
)

func (a *App) newRegisterCommand() *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRegister(cmd.Context(), username, email)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (at least 4 characters)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")

	return cmd
}

func (a *App) newLoginCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session until logout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLogin(cmd.Context(), username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")

	return cmd
}

func (a *App) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store.State() == models.Anonymous {
				a.io.Println("Not logged in.")
			}
			return a.store.Logout(cmd.Context())
		},
	}
}

func (a *App) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printStatus()
			return nil
		},
	}
}

func (a *App) newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Ask the server which user owns the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWhoami(cmd.Context())
		},
	}
}

func (a *App) runRegister(ctx context.Context, username, email string) error {
	a.io.Println("=== Register ===")

	var err error
	if username, err = a.prompt(username, "Username: "); err != nil {
		return err
	}
	if email, err = a.prompt(email, "Email: "); err != nil {
		return err
	}

	password, err := a.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := a.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	if err := a.store.Register(ctx, username, email, password); err != nil {
		return reported(err)
	}

	a.io.Println("Run 'gophnotes login' to sign in.")
	return nil
}

func (a *App) runLogin(ctx context.Context, username string) error {
	a.io.Println("=== Login ===")

	username, err := a.prompt(username, "Username: ")
	if err != nil {
		return err
	}
	password, err := a.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if _, err := a.store.Login(ctx, username, password); err != nil {
		return reported(err)
	}
	return nil
}

func (a *App) printStatus() {
	a.io.Println("=== Session Status ===")

	cred, ok := a.store.Credential()
	if !ok {
		a.io.Printf("Status: %s\n", models.Anonymous)
		a.io.Println("Run 'gophnotes login' to authenticate.")
		return
	}

	a.io.Printf("Status: %s\n", models.Authenticated)
	a.io.Printf("Username: %s\n", cred.Username)
	if expiresAt, ok := a.store.ExpiresAt(); ok {
		a.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
		a.io.Printf("Time remaining: %s\n", time.Until(expiresAt).Round(time.Second))
	}
}

func (a *App) runWhoami(ctx context.Context) error {
	identity, err := a.store.CurrentIdentity(ctx)
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return errors.New("not logged in, run 'gophnotes login' first")
	case errors.Is(err, models.ErrSessionExpired):
		return errors.New("session expired, run 'gophnotes login' again")
	case err != nil:
		return fmt.Errorf("failed to fetch username: %w", err)
	}

	a.io.Println(identity.Username)
	return nil
}

// prompt возвращает value, если оно задано флагом, иначе спрашивает пользователя
func (a *App) prompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	input, err := a.io.ReadInput(label)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return input, nil
}
