package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yapweiyih/auth-agent/internal/apperrors"
)

func TestStatic(t *testing.T) {
	t.Parallel()

	provider := Static{"CLIENT_ID": "id-123", "CLIENT_SECRET": "hush"}

	t.Run("known id", func(t *testing.T) {
		value, err := provider.Get(context.Background(), "CLIENT_ID")

		require.NoError(t, err)
		assert.Equal(t, "id-123", value)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := provider.Get(context.Background(), "NOPE")

		require.ErrorIs(t, err, apperrors.ErrSecretNotFound)
	})
}

func TestNewManager(t *testing.T) {
	t.Parallel()

	t.Run("empty project rejected", func(t *testing.T) {
		_, err := NewManager(context.Background(), "")

		require.Error(t, err)
	})
}
