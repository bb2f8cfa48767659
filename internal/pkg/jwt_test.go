package pkg

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens(t *testing.T) *IdentityTokens {
	t.Helper()
	tokens, err := NewIdentityTokens("test-secret")
	require.NoError(t, err)
	return tokens
}

func TestMintAndParse(t *testing.T) {
	tokens := newTokens(t)

	raw, err := tokens.Mint("u1", "User One", time.Hour)
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	caller := claims.Caller()
	assert.Equal(t, "u1", caller.ID)
	assert.Equal(t, "User One", caller.Name)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, claims.ID, RevocationKey(claims, raw))
}

func TestParse_Expired(t *testing.T) {
	tokens := newTokens(t)
	raw, err := tokens.Mint("u1", "", -time.Minute)
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	other, err := NewIdentityTokens("other-secret")
	require.NoError(t, err)
	raw, err := other.Mint("u1", "", time.Hour)
	require.NoError(t, err)

	_, err = newTokens(t).Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTokens(t).Parse(raw)
	assert.Error(t, err)
}

func TestParse_MissingSubject(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: "nobody"})
	raw, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTokens(t).Parse(raw)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestRevocationKey_WithoutJTI(t *testing.T) {
	claims := &Claims{}
	a := RevocationKey(claims, "token-a")
	b := RevocationKey(claims, "token-b")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "sha256:")
}

func TestRemainingTTL(t *testing.T) {
	now := time.Now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}
	assert.InDelta(t, time.Hour.Seconds(), RemainingTTL(claims, now).Seconds(), 1)
	assert.Equal(t, DevTokenTTL, RemainingTTL(&Claims{}, now))
}

func TestNewIdentityTokens_EmptySecret(t *testing.T) {
	_, err := NewIdentityTokens("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
