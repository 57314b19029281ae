package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("access token expired")

// TokenSource hands out the bearer token for upstream calls. Storing and
// refreshing the token is the session layer's job; this side only reads it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken serves a token taken from configuration. When the token is a
// JWT its exp claim is honoured; the signature is not checked here.
type StaticToken struct {
	raw    string
	expiry time.Time
	now    func() time.Time
}

func NewStaticToken(raw string) *StaticToken {
	raw = strings.TrimSpace(raw)
	t := &StaticToken{raw: raw, now: time.Now}

	if raw == "" {
		return t
	}

	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return t
	}
	if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
		t.expiry = exp.Time
	}

	return t
}

func (t *StaticToken) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !t.expiry.IsZero() && !t.now().Before(t.expiry) {
		return "", fmt.Errorf("%w at %s", ErrTokenExpired, t.expiry.UTC().Format(time.RFC3339))
	}
	return t.raw, nil
}

func (t *StaticToken) Expiry() time.Time {
	return t.expiry
}
