package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// OpenLogFile ensures the logs folder exists then opens the log file in append mode.
// It returns a nil file when no log file is configured.
func OpenLogFile(path string) (*os.File, func(), error) {
	if len(path) == 0 {
		return nil, func() {}, nil
	}
	err := os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logging folder: %w", err)
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logging file: %w", err)
	}
	closer := func() {
		if cerr := logFile.Close(); cerr != nil {
			fmt.Println("error during closing of log file: ", cerr)
		}
	}
	return logFile, closer, nil
}

// SetupLogging is a helper function that initialize the logging module.
// In production all logs are saved as json to the log file, or printed
// to standard output when there is no file. In development the logs are
// printed to standard output in console format as well. It only adds
// stacktrace to error level logs. All logs come with commit & tag value.
func SetupLogging(config *Config, logFile *os.File) (*zap.Logger, func()) {
	zapConfig := zap.NewProductionEncoderConfig()
	if !config.IsProduction {
		zapConfig = zap.NewDevelopmentEncoderConfig()
	}
	zapConfig.TimeKey = "timestamp"
	zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.LevelKey = "level"
	zapConfig.NameKey = "name"
	zapConfig.MessageKey = "msg"
	zapConfig.CallerKey = "caller"
	zapConfig.StacktraceKey = "stacktrace"

	var cores []zapcore.Core
	if logFile != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig), zapcore.AddSync(logFile), config.LogLevel))
	}
	switch {
	case !config.IsProduction:
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.Lock(os.Stdout), config.LogLevel))
	case logFile == nil:
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig), zapcore.Lock(os.Stdout), config.LogLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	logger = logger.With(zap.String("commit", config.GitCommit), zap.String("tag", config.GitTag))

	flusher := func() {
		if err := logger.Sync(); err != nil {
			log.Println("error during flushing any buffered log entries:", err)
		}
	}

	return logger, flusher
}
