package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Secret123!")
	require.NoError(t, err)
	require.NotEqual(t, "Secret123!", hash)

	assert.NoError(t, CheckPassword(hash, "Secret123!"))
	assert.Error(t, CheckPassword(hash, "Secret123"))
	assert.Error(t, CheckPassword(hash, ""))
}

func TestHashPasswordIsSalted(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("Secret123!")
	require.NoError(t, err)
	h2, err := HashPassword("Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "ok mixed", password: "Secret123!", wantErr: false},
		{name: "ok minimal", password: "abcdefg1", wantErr: false},
		{name: "too short", password: "abc1", wantErr: true},
		{name: "no digit", password: "abcdefgh", wantErr: true},
		{name: "no letter", password: "12345678", wantErr: true},
		{name: "empty", password: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
