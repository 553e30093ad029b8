package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType(t *testing.T) {
	err := fmt.Errorf("staging file: %w", Ignored("build.log"))

	assert.True(t, IsType(err, ErrorTypeIgnored))
	assert.False(t, IsType(err, ErrorTypeNotFound))
	assert.Equal(t, ErrorTypeIgnored, TypeOf(err))
	assert.Equal(t, "staging file: file 'build.log' is ignored", err.Error())
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("disk full")))
	assert.False(t, IsType(nil, ErrorTypeNotFound))
}

func TestIs(t *testing.T) {
	assert.True(t, stderrors.Is(BranchNotFound("x"), &Error{Type: ErrorTypeBranchNotFound}))
	assert.False(t, stderrors.Is(BranchNotFound("x"), &Error{Type: ErrorTypeCommitNotFound}))
}
