package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the shared application logger.
	Logger *logrus.Logger
	logMu  sync.Mutex
)

// Config controls level, destination and rotation of the log output.
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // optional; empty means console only
	MaxSize    int    // max size per log file (MB)
	MaxBackups int    // rotated files to keep
	MaxAge     int    // days to keep rotated files
	Compress   bool   // gzip rotated files
	NoConsole  bool   // file only; used by the TUI, which owns the terminal
}

// Init sets up the shared logger. Output goes to stdout unless NoConsole is
// set; when OutputFile is set, a rotating file writer is added alongside.
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
		ForceColors:     true,
	}
	l.SetFormatter(formatter)

	var writers []io.Writer
	if !config.NoConsole {
		writers = append(writers, os.Stdout)
	}
	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	multi := io.MultiWriter(writers...)
	l.SetOutput(multi)

	// Mirror the settings onto the global logrus logger so packages that log
	// through logrus directly end up in the same file.
	logrus.SetOutput(multi)
	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)

	Logger = l
	return nil
}

// InitDefault configures console-only logging at info level.
func InitDefault() error {
	return Init(Config{Level: "info"})
}

func std() *logrus.Logger {
	if Logger != nil {
		return Logger
	}
	return logrus.StandardLogger()
}

func Debug(args ...interface{})                 { std().Debug(args...) }
func Debugf(format string, args ...interface{}) { std().Debugf(format, args...) }
func Info(args ...interface{})                  { std().Info(args...) }
func Infof(format string, args ...interface{})  { std().Infof(format, args...) }
func Warn(args ...interface{})                  { std().Warn(args...) }
func Warnf(format string, args ...interface{})  { std().Warnf(format, args...) }
func Error(args ...interface{})                 { std().Error(args...) }
func Errorf(format string, args ...interface{}) { std().Errorf(format, args...) }

// WithField returns an entry carrying a structured field.
func WithField(key string, value interface{}) *logrus.Entry {
	return std().WithField(key, value)
}

// WithFields returns an entry carrying several structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return std().WithFields(fields)
}
