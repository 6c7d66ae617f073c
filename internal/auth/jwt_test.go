package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/taskboard/internal/model"
)

func TestIssueAndParseToken(t *testing.T) {
	t.Parallel()

	token, err := IssueToken(7, "s3cret", time.Hour)
	require.NoError(t, err)

	identity, err := ParseToken(token, "s3cret")
	require.NoError(t, err)
	require.Equal(t, model.Identity(7), identity)

	_, err = ParseToken(token, "other")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejects(t *testing.T) {
	t.Parallel()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:           7,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseToken(expired, "s3cret")
	require.ErrorIs(t, err, ErrInvalidToken)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseToken(noUser, "s3cret")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not-a-token", "s3cret")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = IssueToken(1, "", time.Hour)
	require.Error(t, err)
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"bearer abc":       "abc",
		"Basic abc":        "",
		"Bearer":           "",
		"Bearer abc extra": "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/cards", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		require.Equal(t, want, ExtractBearer(req), header)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var (
		seen model.Identity
		ok   bool
	)
	handler := Middleware("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = IdentityFrom(r.Context())
	}))

	token, err := IssueToken(3, "s3cret", 0)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/cards", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	require.Equal(t, model.Identity(3), seen)

	req = httptest.NewRequest(http.MethodGet, "/cards", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, ok)

	_, ok = IdentityFrom(context.Background())
	require.False(t, ok)
}
