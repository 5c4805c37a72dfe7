// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/models"
)

// MinSecretLen is the shortest HS256 secret the verifier accepts.
const MinSecretLen = 16

var (
	ErrMissingToken = apperr.New(apperr.CodeAuthenticationFailed, "Authorization bearer token required")
	ErrInvalidToken = apperr.New(apperr.CodeAuthenticationFailed, "Invalid or expired token")
)

// Identity is what the core trusts from the external identity provider.
type Identity struct {
	SubjectHash string
	Role        string
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Verifier checks bearer tokens signed with the secret shared with the
// identity provider.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: []byte(secret), now: now}
}

// Verify parses and validates a token. The subject must be a non-empty
// identity hash and the role one of voter or admin.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	if len(v.secret) < MinSecretLen {
		return Identity{}, errors.New("token verifier is not configured")
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return Identity{}, apperr.New(apperr.CodeAuthenticationFailed, "Token has no subject")
	}
	if parsed.Role != models.RoleVoter && parsed.Role != models.RoleAdmin {
		return Identity{}, apperr.New(apperr.CodeAuthenticationFailed, "Token has an unknown role")
	}
	return Identity{SubjectHash: subject, Role: parsed.Role}, nil
}

// mapJWTError translates jwt library errors to domain errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Wrap(apperr.CodeAuthenticationFailed, "Token has expired", err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return apperr.Wrap(apperr.CodeAuthenticationFailed, "Token is not valid yet", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.Wrap(apperr.CodeAuthenticationFailed, "Token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperr.Wrap(apperr.CodeAuthenticationFailed, "Token is malformed", err)
	}
	return apperr.Wrap(apperr.CodeAuthenticationFailed, ErrInvalidToken.Message, err)
}

// IssueToken signs a token for the given identity. The identity provider
// normally does this; the service uses it for operator tooling and tests.
func IssueToken(id Identity, secret string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) < MinSecretLen {
		return "", errors.New("token secret is too short")
	}
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectHash,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
