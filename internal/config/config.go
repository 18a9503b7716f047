// Package config loads client settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Переменные окружения
const (
	EnvServer      = "GOPHNOTES_SERVER"
	EnvSessionDB   = "GOPHNOTES_SESSION_DB"
	EnvLogLevel    = "GOPHNOTES_LOG_LEVEL"
	EnvLogFile     = "GOPHNOTES_LOG_FILE"
	EnvHTTPTimeout = "GOPHNOTES_HTTP_TIMEOUT"
	EnvMetricsAddr = "GOPHNOTES_METRICS_ADDR"
)

const (
	DefaultServerURL   = "http://localhost:5000"
	DefaultHTTPTimeout = time.Duration(0) // без таймаута, как у net/http
	DefaultLogLevel    = slog.LevelWarn
	sessionDBName      = "gophnotes-session.db"
)

// Config настройки клиента
type Config struct {
	ServerURL   string        // ServerURL адрес API заметок
	SessionDB   string        // SessionDB путь к файлу BoltDB с сессией
	LogFile     string        // LogFile дополнительный JSON лог, пусто = выключен
	MetricsAddr string        // MetricsAddr адрес /metrics, пусто = выключен
	HTTPTimeout time.Duration // HTTPTimeout таймаут запросов к API, 0 = без таймаута
	LogLevel    slog.Level    // LogLevel уровень логирования stderr
}

// DefaultSessionDB возвращает путь к файлу сессии во временном каталоге ОС.
// Временный каталог очищается при перезагрузке, как и сессия браузера.
func DefaultSessionDB() string {
	return filepath.Join(os.TempDir(), sessionDBName)
}

// Load читает .env (если файлы есть) и переменные окружения.
// Без аргументов читается .env текущего каталога.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		ServerURL:   getEnv(EnvServer, DefaultServerURL),
		SessionDB:   getEnv(EnvSessionDB, DefaultSessionDB()),
		LogFile:     getEnv(EnvLogFile, ""),
		MetricsAddr: getEnv(EnvMetricsAddr, ""),
		HTTPTimeout: DefaultHTTPTimeout,
		LogLevel:    DefaultLogLevel,
	}

	if v := getEnv(EnvHTTPTimeout, ""); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHTTPTimeout, err)
		}
		cfg.HTTPTimeout = timeout
	}

	if v := getEnv(EnvLogLevel, ""); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", c.ServerURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url %q: expected http(s)://host", c.ServerURL)
	}
	if c.SessionDB == "" {
		return fmt.Errorf("session db path is empty")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}

// ParseLevel разбирает уровень логирования (debug, info, warn, error)
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
