// Package logging provides structured logging with zap.
package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger = zap.NewNop()
	// helperLogger skips the package-level helper frame when reporting callers.
	helperLogger = globalLogger
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Init initializes the global logger.
func Init(cfg Config) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}

	globalLogger = logger
	helperLogger = logger.WithOptions(zap.AddCallerSkip(1))
	return nil
}

// InitDefault installs a production logger so errors raised before the
// configuration is loaded are still reported.
func InitDefault() {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewExample()
	}
	globalLogger = logger
	helperLogger = logger.WithOptions(zap.AddCallerSkip(1))
}

// L returns the global logger. Before Init or InitDefault it is a no-op logger.
func L() *zap.Logger {
	return globalLogger
}

// Sync flushes any buffered log entries.
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

func Debug(msg string, fields ...zap.Field) {
	helperLogger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	helperLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	helperLogger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	helperLogger.Error(msg, fields...)
}

// Fatal logs and exits the process.
func Fatal(msg string, fields ...zap.Field) {
	helperLogger.Fatal(msg, fields...)
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware logs one line per request and propagates X-Request-ID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		L().Info("request completed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
