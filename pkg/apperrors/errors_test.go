package apperrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardwatch/cardwatch/pkg/apperrors"
)

func TestIs(t *testing.T) {
	err := apperrors.New(apperrors.ErrNotFound, "shop config missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.False(t, apperrors.Is(err, apperrors.ErrTimeout))
}

func TestIs_NonAppError(t *testing.T) {
	assert.False(t, apperrors.Is(errors.New("plain"), apperrors.ErrNotFound))
}

func TestWrap_PreservesCauseChain(t *testing.T) {
	root := errors.New("connection refused")
	wrapped := apperrors.Wrap(root, apperrors.ErrUnavailable, "navigating to product page")

	assert.Equal(t, root, apperrors.Cause(wrapped))
	assert.True(t, errors.Is(wrapped, root))
}

func TestRootCause(t *testing.T) {
	root := errors.New("dial tcp: timeout")
	l1 := apperrors.Wrap(root, apperrors.ErrTimeout, "fetching search page")
	l2 := apperrors.Wrap(l1, apperrors.ErrExecutionFailed, "scraping shop")

	assert.Equal(t, root, apperrors.RootCause(l2))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, apperrors.ErrUnknown, apperrors.GetType(nil))
	assert.Equal(t, apperrors.ErrUnknown, apperrors.GetType(errors.New("plain")))
	assert.Equal(t, apperrors.ErrConflict, apperrors.GetType(apperrors.New(apperrors.ErrConflict, "dup")))
}

func TestError_FormatsCauseWhenPresent(t *testing.T) {
	err := apperrors.Wrap(errors.New("boom"), apperrors.ErrSystem, "writing result")
	assert.Equal(t, "writing result: boom", err.Error())
}
