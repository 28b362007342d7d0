package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKindsMatchThroughWrapping(t *testing.T) {
	t.Parallel()

	kinds := []error{ErrValidation, ErrState, ErrAuthorization, ErrConflict, ErrNotFound}

	for _, kind := range kinds {
		wrapped := fmt.Errorf("auction auction-1: %w", kind)
		require.ErrorIs(t, wrapped, kind)

		for _, other := range kinds {
			if other != kind {
				require.False(t, errors.Is(wrapped, other),
					"%v must not match %v", kind, other)
			}
		}
	}
}
