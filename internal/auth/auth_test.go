package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateDisabled(t *testing.T) {
	g := NewGate("")
	assert.False(t, g.Enabled())

	require.NoError(t, g.Check(""))
	require.NoError(t, g.Check("Bearer anything"))
	require.NoError(t, g.Check("garbage"))
}

func TestGateCheck(t *testing.T) {
	g := NewGate("secret")
	require.True(t, g.Enabled())

	tests := []struct {
		name          string
		authorization string
		wantErr       error
	}{
		{"valid key", "Bearer secret", nil},
		{"missing header", "", ErrMissingCredential},
		{"no bearer scheme", "secret", ErrMalformedCredential},
		{"basic scheme", "Basic c2VjcmV0", ErrMalformedCredential},
		{"lowercase bearer", "bearer secret", ErrMalformedCredential},
		{"wrong key", "Bearer nope", ErrInvalidCredential},
		{"key with suffix", "Bearer secrets", ErrInvalidCredential},
		{"empty token", "Bearer ", ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(tt.authorization)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
