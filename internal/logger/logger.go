// Package logger is the process-wide tagged logger. Every line carries a short
// component tag ("ESI", "DB", "Route") and is written through zap.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = build(level)
)

// stdout resolves os.Stdout on every write so redirected output is honoured.
type stdout struct{}

func (stdout) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdout) Sync() error                 { return nil }

func build(lvl zap.AtomicLevel) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	enc.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(stdout{}), lvl)
	return zap.New(core)
}

// SetLevel changes the minimum level ("debug", "info", "warn", "error").
func SetLevel(name string) error {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	level.SetLevel(lvl)
	return nil
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	return base
}

// Named returns a child logger for a component that wants structured fields.
func Named(tag string) *zap.Logger {
	return L().Named(tag)
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}

func Info(tag, msg string) {
	Named(tag).Info(msg)
}

// Success logs a completed step at info level.
func Success(tag, msg string) {
	Named(tag).Info(msg, zap.Bool("ok", true))
}

func Warn(tag, msg string) {
	Named(tag).Warn(msg)
}

func Error(tag, msg string) {
	Named(tag).Error(msg)
}

// Banner prints the startup line.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	L().Info("Quartermaster backend", zap.String("version", version))
}

// Section logs a visual separator for multi-step output.
func Section(title string) {
	L().Info("── " + title + " ──")
}

// Stats logs a single key/value statistic.
func Stats(key string, value interface{}) {
	L().Info("stat", zap.String("key", key), zap.Any("value", value))
}

// Server logs the listen address.
func Server(addr string) {
	L().Info("Listening", zap.String("addr", "http://"+addr))
}
