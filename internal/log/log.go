// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// New builds a zap logger without touching the package-level instance.
// Components take the sugared form of this logger at construction.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Init initializes the package-level logger
func Init(debug bool) error {
	zapLogger, err := New(debug)
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	baseLogger = zapLogger
	log = zapLogger.WithOptions(zap.AddCallerSkip(1)).Sugar()
	return nil
}

// GetZapLogger returns the base zap logger for cases where it's needed (like GORM)
func GetZapLogger() *zap.Logger {
	if baseLogger == nil {
		baseLogger, _ = zap.NewProduction()
		log = baseLogger.WithOptions(zap.AddCallerSkip(1)).Sugar()
	}
	return baseLogger
}

// GetSugaredLogger returns a sugared logger suitable for injecting into components
func GetSugaredLogger() *zap.SugaredLogger {
	return GetZapLogger().Sugar()
}

// Sync flushes any buffered log entries
func Sync() {
	if baseLogger != nil {
		baseLogger.Sync()
	}
}

// Package-level convenience functions, used by main and the application shell.
func Debugf(template string, args ...interface{}) {
	GetZapLogger()
	log.Debugf(template, args...)
}

func Info(args ...interface{}) {
	GetZapLogger()
	log.Info(args...)
}

func Infof(template string, args ...interface{}) {
	GetZapLogger()
	log.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	GetZapLogger()
	log.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	GetZapLogger()
	log.Errorf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	GetZapLogger()
	log.Fatalf(template, args...)
	os.Exit(1)
}
