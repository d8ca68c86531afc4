package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/govscheme-portal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyPair(t *testing.T) (privPath, pubPath string) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))
	return privPath, pubPath
}

func TestProvider_SignVerifyRoundTrip(t *testing.T) {
	privPath, pubPath := writeKeyPair(t)
	p, err := NewProvider(&config.Config{JWTPrivateKeyPath: privPath, JWTPublicKeyPath: pubPath, JWTExpiry: time.Hour})
	require.NoError(t, err)

	token, err := p.Sign("u1", "asha@example.com", "USER")
	require.NoError(t, err)

	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	privPath, pubPath := writeKeyPair(t)
	p, err := NewProvider(&config.Config{JWTPrivateKeyPath: privPath, JWTPublicKeyPath: pubPath, JWTExpiry: time.Hour})
	require.NoError(t, err)
	return p
}

func TestProvider_ExpiredTokenRejected(t *testing.T) {
	p := newTestProvider(t)
	p.expiry = -time.Minute

	token, err := p.Sign("u1", "a@b.c", "USER")
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestProvider_ForeignIssuerRejected(t *testing.T) {
	p := newTestProvider(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(p.privateKey)
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestProvider_HMACTokenRejected(t *testing.T) {
	p := newTestProvider(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.Error(t, err)
}

func TestNewProvider_MissingKeyFile(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: filepath.Join(t.TempDir(), "nope.pem")})
	assert.ErrorContains(t, err, "private key")
}

func TestNewProvider_RejectsNonPositiveExpiry(t *testing.T) {
	privPath, pubPath := writeKeyPair(t)
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: privPath, JWTPublicKeyPath: pubPath})
	assert.ErrorContains(t, err, "expiry")
}
