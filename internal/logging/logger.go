package logging

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type operationKey struct{}

type Logger struct {
	*zap.Logger
}

func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	// Status lines go to stdout, keep the log on stderr
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

// WithOperation stores an operation ID on ctx.
func WithOperation(ctx context.Context, opID string) context.Context {
	return context.WithValue(ctx, operationKey{}, opID)
}

// OperationID returns the operation ID stored on ctx, if any.
func OperationID(ctx context.Context) string {
	id, _ := ctx.Value(operationKey{}).(string)
	return id
}

func (l *Logger) WithOperation(ctx context.Context) *zap.Logger {
	if opID := OperationID(ctx); opID != "" {
		return l.With(zap.String("op_id", opID))
	}
	return l.Logger
}

// BadgerLogger routes badger's internal logging through zap.
type BadgerLogger struct {
	sugar *zap.SugaredLogger
}

func NewBadgerLogger(l *zap.Logger) *BadgerLogger {
	return &BadgerLogger{sugar: l.Named("badger").Sugar()}
}

func (b *BadgerLogger) Errorf(format string, args ...interface{}) {
	b.sugar.Errorf(strings.TrimSpace(format), args...)
}

func (b *BadgerLogger) Warningf(format string, args ...interface{}) {
	b.sugar.Warnf(strings.TrimSpace(format), args...)
}

func (b *BadgerLogger) Infof(format string, args ...interface{}) {
	b.sugar.Debugf(strings.TrimSpace(format), args...)
}

func (b *BadgerLogger) Debugf(format string, args ...interface{}) {
	b.sugar.Debugf(strings.TrimSpace(format), args...)
}
