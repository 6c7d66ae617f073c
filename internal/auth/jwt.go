package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/simonjohansson/taskboard/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID. A zero ttl issues a token
// without expiry.
func IssueToken(userID int64, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}
	now := time.Now()
	c := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

func ParseToken(tokenStr, secret string) (model.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid || c.UserID <= 0 {
		return 0, ErrInvalidToken
	}
	return model.Identity(c.UserID), nil
}

func ExtractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(model.Identity)
	return identity, ok
}

// Middleware attaches the identity of a valid bearer token to the request
// context. Requests without a valid token pass through unauthenticated;
// handlers that need an identity reject them.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := ExtractBearer(r); raw != "" {
				if identity, err := ParseToken(raw, secret); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
