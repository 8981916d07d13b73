package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quests/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

const secret = "0123456789abcdef"

func TestTokens_IssueAndVerify(t *testing.T) {
	tokens := auth.NewTokens(secret, time.Hour)

	token, err := tokens.Issue("65f0c0ffee0000000000abcd")
	require.NoError(t, err)

	sub, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0000000000abcd", sub)
}

func TestTokens_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens := auth.NewTokens(secret, time.Hour).WithClock(func() time.Time { return issuedAt })

	token, err := tokens.Issue("user")
	require.NoError(t, err)

	later := tokens.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestTokens_Invalid(t *testing.T) {
	tokens := auth.NewTokens(secret, time.Hour)
	other := auth.NewTokens("another-secret-value", time.Hour)

	foreign, err := other.Issue("user")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not.a.token"},
		{name: "empty", token: ""},
		{name: "wrong secret", token: foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestTokens_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewTokens(secret, time.Hour).Verify(unsigned)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokens_RequiresSubject(t *testing.T) {
	tokens := auth.NewTokens(secret, time.Hour)
	token, err := tokens.Issue("")
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	p := auth.NewPasswords(bcrypt.MinCost)

	digest, err := p.Hash("pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", digest)

	ok, err := p.Verify("pw", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Verify("wrong", digest)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Verify("pw", "not-a-digest")
	assert.Error(t, err)
}
