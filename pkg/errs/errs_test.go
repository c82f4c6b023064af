package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("row %q not found", "x")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("while saving: %w", Conflict("duplicate value"))
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream(cause, "append row")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "append row: connection reset", err.Error())
	assert.Equal(t, "upstream", KindOf(err).String())
}
