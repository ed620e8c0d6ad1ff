package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrIllegalTransition, "course is under review")
	require.Equal(t, "course is under review", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrIllegalTransition))
	assert.False(t, errors.Is(cloned, ErrConflict))
	assert.Equal(t, "action not allowed in the current state", ErrIllegalTransition.Message)
}

func TestRemoteRejectedStatus(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := RemoteRejected(http.StatusForbidden, "not your course", cause)
	assert.Equal(t, http.StatusForbidden, err.Status)
	assert.Equal(t, "not your course", err.Message)
	assert.ErrorIs(t, err, cause)

	upstream := RemoteRejected(http.StatusInternalServerError, "", nil)
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
	assert.Equal(t, ErrRemoteRejected.Message, upstream.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("plain"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("ctx: %w", ErrNetworkFailure)
	assert.Equal(t, ErrNetworkFailure.Code, FromError(wrapped).Code)
	assert.True(t, HasCode(wrapped, ErrNetworkFailure.Code))
}
