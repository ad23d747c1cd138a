package logger

import (
	"bufio"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger and the optional log file it tees into
type Logger struct {
	*zap.Logger
	file   *os.File
	writer *bufferedSyncer
}

// bufferedSyncer makes a bufio.Writer usable as a zap sink
type bufferedSyncer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (b *bufferedSyncer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Write(p)
}

func (b *bufferedSyncer) Sync() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Flush()
}

// Close properly flushes and closes the log file
func (l *Logger) Close() error {
	if err := l.Flush(); err != nil {
		return err
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Flush() error {
	// stderr sync fails on terminals, only the file sink matters here
	_ = l.Logger.Sync()
	if l.writer != nil {
		return l.writer.Sync()
	}
	return nil
}

// ParseLevel parses debug, info, warn or error
func ParseLevel(level string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return lvl, err
	}
	return lvl, nil
}

// NewLogger logs human-readable lines to stderr and, when filename is not empty,
// JSON lines to filename (truncated).
func NewLogger(level string, filename string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enabler := zap.NewAtomicLevelAt(lvl)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), enabler),
	}

	l := &Logger{}
	if filename != "" {
		logFile, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return nil, err
		}
		l.file = logFile
		l.writer = &bufferedSyncer{w: bufio.NewWriter(logFile)}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), l.writer, enabler))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, nil
}
