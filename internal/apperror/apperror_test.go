package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(Conflict("dup")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("missing"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindTokenExpired, KindOf(TokenExpired()))
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Forbidden("You are not authorized to update this data."))

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "You are not authorized to update this data.", MessageOf(err))
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("smtp down")
	err := Unavailable("Verified mail could not be sent", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestInvalidEnum(t *testing.T) {
	err := InvalidEnum("status", 12)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "status")
}
