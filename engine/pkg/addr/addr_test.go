package addr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGatehouse_Addr_Parse(t *testing.T) {
	t.Parallel()

	raw := make([]byte, Len)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	a, err := FromBytes(raw)
	require.NoError(t, err)

	parsed, err := Parse(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)

	t.Run("rejects empty", func(t *testing.T) {
		_, err := Parse("")
		require.Error(t, err)
	})

	t.Run("rejects non-base58", func(t *testing.T) {
		_, err := Parse("not-base58-0OIl")
		require.Error(t, err)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		short, err := FromBytes(raw[:16])
		require.Error(t, err)
		require.True(t, short.IsZero())

		// 16 bytes of valid base58 is still not an address
		_, err = Parse("2FYVfFstx")
		require.Error(t, err)
	})
}

func TestGatehouse_Addr_IsZero(t *testing.T) {
	t.Parallel()

	var zero Address
	require.True(t, zero.IsZero())

	raw := make([]byte, Len)
	a, err := FromBytes(raw)
	require.NoError(t, err)
	require.False(t, a.IsZero())
}
