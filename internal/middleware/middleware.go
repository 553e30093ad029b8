package middleware

import (
	"context"
	"fmt"
	"time"

	"minivcs/internal/errors"
	"minivcs/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler runs one command and returns its one-line status.
type Handler func(ctx context.Context, args []string) (string, error)

// Middleware wraps the handler of the named command.
type Middleware func(name string, next Handler) Handler

func Chain(name string, h Handler, middlewares ...Middleware) Handler {
	for _, m := range middlewares {
		h = m(name, h)
	}
	return h
}

// OperationID tags every command invocation with a fresh ID.
func OperationID(name string, next Handler) Handler {
	return func(ctx context.Context, args []string) (string, error) {
		ctx = logging.WithOperation(ctx, uuid.New().String())
		return next(ctx, args)
	}
}

func Logger(logger *logging.Logger) Middleware {
	return func(name string, next Handler) Handler {
		return func(ctx context.Context, args []string) (string, error) {
			start := time.Now()

			out, err := next(ctx, args)

			fields := []zap.Field{
				zap.String("command", name),
				zap.Strings("args", args),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, zap.String("error_type", string(errors.TypeOf(err))), zap.Error(err))
				logger.WithOperation(ctx).Warn("command failed", fields...)
			} else {
				logger.WithOperation(ctx).Info("command completed", fields...)
			}
			return out, err
		}
	}
}

func Recover(logger *logging.Logger) Middleware {
	return func(name string, next Handler) Handler {
		return func(ctx context.Context, args []string) (out string, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.WithOperation(ctx).Error("panic recovered",
						zap.String("command", name),
						zap.Any("error", r),
					)
					out, err = "", fmt.Errorf("internal error in %s: %v", name, r)
				}
			}()
			return next(ctx, args)
		}
	}
}
