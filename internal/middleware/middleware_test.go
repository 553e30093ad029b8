package middleware

import (
	"context"
	"testing"

	"minivcs/internal/errors"
	"minivcs/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &logging.Logger{Logger: zap.New(core)}, logs
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(tag string) Middleware {
		return func(name string, next Handler) Handler {
			return func(ctx context.Context, args []string) (string, error) {
				order = append(order, tag)
				return next(ctx, args)
			}
		}
	}

	h := Chain("log", func(ctx context.Context, args []string) (string, error) {
		return "ok", nil
	}, mark("inner"), mark("outer"))

	out, err := h(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestOperationID(t *testing.T) {
	var seen []string
	h := OperationID("log", func(ctx context.Context, args []string) (string, error) {
		seen = append(seen, logging.OperationID(ctx))
		return "", nil
	})

	_, _ = h(context.Background(), nil)
	_, _ = h(context.Background(), nil)
	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.NotEqual(t, seen[0], seen[1])
}

func TestLogger(t *testing.T) {
	logger, logs := observed()

	ok := Logger(logger)("log", func(ctx context.Context, args []string) (string, error) {
		return "done", nil
	})
	_, err := ok(logging.WithOperation(context.Background(), "op-1"), []string{"x"})
	require.NoError(t, err)

	failing := Logger(logger)("checkout", func(ctx context.Context, args []string) (string, error) {
		return "", errors.BranchNotFound("ghost")
	})
	_, err = failing(context.Background(), []string{"ghost"})
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "command completed", entries[0].Message)
	assert.Equal(t, "op-1", entries[0].ContextMap()["op_id"])
	assert.Equal(t, "command failed", entries[1].Message)
	assert.Equal(t, "BRANCH_NOT_FOUND", entries[1].ContextMap()["error_type"])
}

func TestRecover(t *testing.T) {
	logger, logs := observed()

	h := Recover(logger)("merge", func(ctx context.Context, args []string) (string, error) {
		panic("boom")
	})

	out, err := h(context.Background(), nil)
	assert.Empty(t, out)
	assert.EqualError(t, err, "internal error in merge: boom")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
