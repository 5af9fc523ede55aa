package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewTokenService_KeyValidation(t *testing.T) {
	_, err := NewTokenService("abcd", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(strings.Repeat("zz", 32), time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(testKeyHex, 0)
	assert.Error(t, err)

	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.AccessTokenDuration())
}

func TestAccessToken_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("user-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.True(t, strings.HasPrefix(claims.TokenID, "token-"))
}

func TestAccessToken_Rejected(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken("v4.local.garbage")
	assert.Error(t, err)

	other, err := NewTokenService(strings.Repeat("ab", 32), time.Hour)
	require.NoError(t, err)
	token, err := other.GenerateAccessToken("user-1")
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err, "token from another key must not verify")

	_, err = svc.GenerateAccessToken("")
	assert.Error(t, err)
}

func TestAccessToken_Expired(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Millisecond)
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("user-1")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyHexSize)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(dir, KeyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFileName), []byte("short"), 0o600))
	_, err = LoadOrGenerateKey(dir)
	assert.Error(t, err)
}
