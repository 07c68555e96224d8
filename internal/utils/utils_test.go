package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "user-1", "admin", 5)
	require.NoError(t, err)

	claims, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseAccessToken("other-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", "user-1", "user", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	live, err := NewAccessToken("s", "u", "user", 10)
	require.NoError(t, err)
	dead, err := NewAccessToken("s", "u", "user", -10)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte("s"))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"live", live.Token, false},
		{"expired", dead.Token, true},
		{"no exp claim", noExp, false},
		{"opaque", "not-a-jwt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenExpired(tt.raw, now))
		})
	}
}

func TestOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewOTP()
		require.NoError(t, err)
		assert.True(t, ValidOTP(code), code)
	}
	for _, bad := range []string{"", "12345", "1234567", "12a456", " 123456"} {
		assert.False(t, ValidOTP(bad), bad)
	}
	assert.Equal(t, HashCode("123456"), HashCode("123456"))
	assert.NotEqual(t, HashCode("123456"), HashCode("654321"))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("password", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "password"))
	assert.False(t, VerifyPassword(hash, "Password"))
}
