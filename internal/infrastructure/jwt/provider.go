package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/govscheme-portal/internal/config"
)

// Issuer is stamped on every portal token and required on verification.
const Issuer = "govscheme-portal"

// Claims identifies a verified portal account.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 session tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
	parser     *jwt.Parser
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privKey, err := readKey(cfg.JWTPrivateKeyPath, jwt.ParseRSAPrivateKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	pubKey, err := readKey(cfg.JWTPublicKeyPath, jwt.ParseRSAPublicKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	if cfg.JWTExpiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}

	return &Provider{
		privateKey: privKey,
		publicKey:  pubKey,
		expiry:     cfg.JWTExpiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}, nil
}

func readKey[K any](path string, parse func([]byte) (K, error)) (K, error) {
	var zero K
	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, err
	}
	k, err := parse(raw)
	if err != nil {
		return zero, err
	}
	return k, nil
}

// Sign issues a token for a verified account. The email doubles as the subject.
func (p *Provider) Sign(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.privateKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := p.parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
