// internal/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	LogFile    string
	MaxSize    int  // мегабайты
	MaxAge     int  // дни
	MaxBackups int  // количество файлов
	Compress   bool // сжимать ротированные файлы
	Debug      bool

	// ConsoleDisabled routes output to the file (and Buffer) only.
	ConsoleDisabled bool
	// Buffer, when set, receives a JSON copy of every entry.
	Buffer *LogBuffer
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "raffle-monitor.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}

// Logger расширяет функционал zap.Logger
type Logger struct {
	*zap.Logger
	config *Config
}

// New creates the service logger: a pretty console core on stdout and a JSON
// core on a rotated file.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var cores []zapcore.Core
	if !cfg.ConsoleDisabled {
		console := zapcore.NewCore(PrettyEncoder(), zapcore.Lock(os.Stdout), level)
		cores = append(cores, &FieldFilterCore{core: console})
	}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}
	if cfg.Buffer != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(bufferEncoderConfig()), zapcore.AddSync(cfg.Buffer), level))
	}
	if len(cores) == 0 {
		return nil, errors.New("logger has no outputs: console disabled and no log file")
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
		config: cfg,
	}, nil
}

// WithOperation tags a logger with an operation name and a correlation id.
// An empty id gets a fresh one.
func WithOperation(base *zap.Logger, operation, id string) *zap.Logger {
	if id == "" {
		id = uuid.New().String()
	}
	return base.With(
		zap.String("operation", operation),
		zap.String("correlation_id", id),
	)
}

// WithSignature добавляет подпись транзакции к логам
func WithSignature(base *zap.Logger, signature string) *zap.Logger {
	return base.With(zap.String("signature", signature))
}

// WithRaffle adds the raffle id field.
func WithRaffle(base *zap.Logger, raffleID string) *zap.Logger {
	return base.With(zap.String("raffle_id", raffleID))
}

// Sync реализует безопасный вызов Sync
func (l *Logger) Sync() error {
	return Sync(l.Logger)
}

// Sync flushes base, ignoring the errors terminals return for fsync.
func Sync(base *zap.Logger) error {
	err := base.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF) {
		return nil
	}
	return err
}
