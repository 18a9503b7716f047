// Package cli implements the gophnotes command line client on top of the
// session store and the note synchronization engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/client/auth"
	"github.com/iudanet/gophnotes/internal/client/iocli"
	"github.com/iudanet/gophnotes/internal/client/metrics"
	"github.com/iudanet/gophnotes/internal/client/notesync"
	"github.com/iudanet/gophnotes/internal/client/notify"
	"github.com/iudanet/gophnotes/internal/client/storage"
	"github.com/iudanet/gophnotes/internal/client/storage/boltdb"
	"github.com/iudanet/gophnotes/internal/client/storage/memory"
	"github.com/iudanet/gophnotes/internal/config"
	"github.com/iudanet/gophnotes/internal/logger"
)

const skipSetup = "skip-setup"

// BuildInfo информация о сборке, задается через ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Options настраивает ввод/вывод приложения
type Options struct {
	In    io.Reader // In ввод команд и паролей (stdin)
	Out   io.Writer // Out вывод данных (stdout)
	Err   io.Writer // Err уведомления и логи (stderr)
	Build BuildInfo
}

// App holds the wiring of one CLI invocation
type App struct {
	io      iocli.IO
	errOut  io.Writer
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	store   *auth.Store
	engine  *notesync.Engine
	cleanup []func() error
	build   BuildInfo
	flags   globalFlags
}

type globalFlags struct {
	server    string
	sessionDB string
	logLevel  string
	logFile   string
	ephemeral bool
}

// Execute запускает команду и возвращает код выхода
func Execute(ctx context.Context, args []string, opts Options) int {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	app := &App{
		io:     iocli.NewStdio(opts.In, opts.Out),
		errOut: opts.Err,
		build:  opts.Build,
	}
	defer app.teardown()

	root := app.newRootCommand()
	root.SetArgs(args)
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	if err := root.ExecuteContext(ctx); err != nil {
		if !isReported(err) {
			_, _ = fmt.Fprintf(opts.Err, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gophnotes",
		Short:         "Command line client for the notes service",
		Long:          "gophnotes keeps your notes on a remote notes service.\nLog in once; the session lasts until logout, expiry or reboot.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return a.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.server, "server", "", "notes service URL (env "+config.EnvServer+")")
	pf.StringVar(&a.flags.sessionDB, "session-db", "", "session database path (env "+config.EnvSessionDB+")")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (env "+config.EnvLogLevel+")")
	pf.StringVar(&a.flags.logFile, "log-file", "", "write JSON logs to this file (env "+config.EnvLogFile+")")
	pf.BoolVar(&a.flags.ephemeral, "ephemeral", false, "keep the session in memory only")

	root.AddCommand(
		a.newRegisterCommand(),
		a.newLoginCommand(),
		a.newLogoutCommand(),
		a.newStatusCommand(),
		a.newWhoamiCommand(),
		a.newNotesCommand(),
		a.newShellCommand(),
		a.newVersionCommand(),
	)

	return root
}

// setup загружает конфигурацию и собирает зависимости команды
func (a *App) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := a.applyFlags(cmd, cfg); err != nil {
		return err
	}
	a.cfg = cfg

	log, closeLog, err := logger.New(logger.Options{
		Writer:   a.errOut,
		FilePath: cfg.LogFile,
		Level:    cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	a.logger = log
	a.cleanup = append(a.cleanup, closeLog)

	sessions, err := a.openSessionStorage(ctx, cfg)
	if err != nil {
		return err
	}

	a.metrics = metrics.New()
	client := api.NewClient(cfg.ServerURL,
		api.WithLogger(log),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithObserver(a.metrics),
	)

	notifier := notify.Multi(log,
		newOutcomePrinter(a.errOut),
		notify.NewLogNotifier(log),
		a.metrics,
	)

	a.store = auth.NewStore(client, sessions, log, auth.WithNotifier(notifier))
	if _, err := a.store.Restore(ctx); err != nil {
		return err
	}

	a.engine = notesync.NewEngine(a.store, notifier, log)
	a.cleanup = append(a.cleanup, func() error {
		a.engine.Close()
		return nil
	})

	log.Debug("client ready", "server", cfg.ServerURL, "session", a.store.State())
	return nil
}

func (a *App) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = a.flags.server
	}
	if flags.Changed("session-db") {
		cfg.SessionDB = a.flags.sessionDB
	}
	if flags.Changed("log-file") {
		cfg.LogFile = a.flags.logFile
	}
	if flags.Changed("log-level") {
		level, err := config.ParseLevel(a.flags.logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	return cfg.Validate()
}

func (a *App) openSessionStorage(ctx context.Context, cfg *config.Config) (storage.SessionStorage, error) {
	if a.flags.ephemeral {
		return memory.New(), nil
	}

	db, err := boltdb.New(ctx, cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	a.cleanup = append(a.cleanup, db.Close)
	return db, nil
}

// teardown освобождает ресурсы в обратном порядке
func (a *App) teardown() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil && a.logger != nil {
			a.logger.Error("cleanup failed", "error", err)
		}
	}
	a.cleanup = nil
}

// reportedError помечает ошибку, о которой пользователь уже уведомлен
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func isReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
