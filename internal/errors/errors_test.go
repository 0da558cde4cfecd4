package errors_test

import (
	"testing"

	apperrors "github.com/jrsteele09/field-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "context"))

	err := apperrors.Wrapf(apperrors.ErrNotFound, "user %s", "42")
	require.EqualError(t, err, "user 42: not found")
	require.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	require.False(t, apperrors.Is(err, apperrors.ErrDuplicate))
}
