// Package auth verifies bearer tokens presented to the study API.
//
// Verification is opt-in: when no SURVEYS_AUTH_* environment is configured
// the verifier runs in dev mode and accepts any token, mirroring how studies
// are exercised locally before an identity provider exists.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/StanNowak/Surveys/internal/platform/errors"
)

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"SURVEYS_AUTH_ISSUER"`
	Audience  string `env:"SURVEYS_AUTH_AUDIENCE"`
	PublicKey string `env:"SURVEYS_AUTH_PUBLIC_KEY"`
}

// Config defines how bearer tokens are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Enabled reports whether real verification is configured.
func (c Config) Enabled() bool {
	return c.Issuer != "" || c.Audience != "" || len(c.Key) > 0
}

// Claims captures the verified identity attached to a request.
type Claims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
	DevMode   bool
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

// LoadConfigFromEnv reads token verification configuration. An entirely
// unset environment yields a dev-mode config; a partially set one is an
// error so misconfigured deployments fail loudly instead of silently
// accepting every token.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if now == nil {
		now = time.Now
	}
	if issuer == "" && audience == "" && publicKey == "" {
		return Config{Now: now}, nil
	}
	if issuer == "" {
		return Config{}, fmt.Errorf("SURVEYS_AUTH_ISSUER is required")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("SURVEYS_AUTH_AUDIENCE is required")
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("SURVEYS_AUTH_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode auth public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("auth public key must be %d bytes", ed25519.PublicKeySize)
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verifier validates bearer tokens against one Config.
type Verifier struct {
	cfg Config
}

// NewVerifier creates a token verifier for the given config.
func NewVerifier(cfg Config) *Verifier {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}
}

// Verify checks one bearer token and returns its claims.
//
// In dev mode any non-empty token is accepted and the subject is derived
// from the token prefix.
func (v *Verifier) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenMissing, "bearer token is required")
	}
	if v == nil || !v.cfg.Enabled() {
		subject := token
		if len(subject) > 8 {
			subject = subject[:8]
		}
		return Claims{Subject: "dev_user_" + subject, DevMode: true}, nil
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != v.cfg.Issuer {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token issuer mismatch")
	}
	if !audienceContains(parsed.Audience, v.cfg.Audience) {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token audience mismatch")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token subject is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token exp is required")
	}

	now := v.cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token not active yet")
	}

	return Claims{
		Subject:   parsed.Subject,
		Issuer:    parsed.Issuer,
		ExpiresAt: exp,
	}, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeAuthTokenInvalid, "token alg is invalid")
	}
	return apperrors.New(apperrors.CodeAuthTokenInvalid, "token is invalid")
}

// audienceContains reports whether the audience list contains the value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
