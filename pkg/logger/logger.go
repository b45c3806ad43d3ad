// Package logger arma el zerolog de los binarios: JSON en producción, consola legible en
// desarrollo, un campo component por subsistema.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config parámetros del logger, tomados de APP_ENV, LOG_LEVEL y APP_NAME.
type Config struct {
	Env     string // development usa ConsoleWriter
	Level   string // trace..error; inválido o vacío = info
	Service string
	Output  io.Writer // por defecto stdout
}

// Logger zerolog con la raíz de la aplicación.
type Logger struct {
	zerolog.Logger
}

// New también reemplaza el logger global de zerolog.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Env == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	l := &Logger{Logger: ctx.Logger()}
	zlog.Logger = l.Logger
	return l
}

// Component sublogger para un subsistema (saga, filing, http, offline-queue...).
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
