// Package logger builds the client's structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Options настройки логгера
type Options struct {
	Writer   io.Writer  // Writer вывод текстового лога (обычно stderr)
	FilePath string     // FilePath дополнительный JSON лог, пусто = выключен
	Level    slog.Level // Level минимальный уровень текстового лога
}

// New создает логгер: текстовый вывод в Writer и, если задан FilePath,
// JSON лог уровня debug в файл. Возвращаемая функция закрывает файл.
func New(opts Options) (*slog.Logger, func() error, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(writer, &slog.HandlerOptions{Level: opts.Level}),
	}
	closeFn := func() error { return nil }

	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closeFn = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}
