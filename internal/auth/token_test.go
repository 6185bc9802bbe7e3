package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/survey-haven/api/internal/shared"
)

var secret = []byte("test-secret")

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(secret, 7*24*time.Hour)
	verifier := NewVerifier(secret)

	token, err := issuer.Issue(map[string]any{"email": "ann@example.com", "name": "Ann"})
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, "Ann", claims.Values["name"])
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestIssueOverridesCallerExpiry(t *testing.T) {
	issuer := NewIssuer(secret, time.Hour)

	token, err := issuer.Issue(map[string]any{"email": "ann@example.com", "exp": 1})
	require.NoError(t, err)

	claims, err := NewVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestVerifyAcceptsArbitrarilyShapedClaims(t *testing.T) {
	issuer := NewIssuer(secret, time.Hour)
	payloads := map[string]map[string]any{
		"object name":     {"email": "a@x.io", "name": map[string]any{"first": "A"}},
		"numeric sub":     {"email": "a@x.io", "sub": 42},
		"object iss":      {"email": "a@x.io", "iss": map[string]any{"provider": "google"}},
		"numeric aud":     {"email": "a@x.io", "aud": 7},
		"string nbf":      {"email": "a@x.io", "nbf": "soon"},
		"future nbf":      {"email": "a@x.io", "nbf": time.Now().Add(time.Hour).Unix()},
		"numeric email":   {"email": 12},
		"no email at all": {"uid": "abc"},
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			token, err := issuer.Issue(payload)
			require.NoError(t, err)

			claims, err := NewVerifier(secret).Verify(token)
			require.NoError(t, err)
			for key, value := range payload {
				if key == "nbf" {
					continue
				}
				assert.Contains(t, claims.Values, key)
				if s, ok := value.(string); ok {
					assert.Equal(t, s, claims.Values[key])
				}
			}
		})
	}
}

func TestVerifyReadsEmailOnlyFromStrings(t *testing.T) {
	token, err := NewIssuer(secret, time.Hour).Issue(map[string]any{"email": 12})
	require.NoError(t, err)

	claims, err := NewVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Email)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "ann@example.com"})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(signed)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestIssueRejectsUnserializablePayload(t *testing.T) {
	issuer := NewIssuer(secret, time.Hour)

	_, err := issuer.Issue(map[string]any{"email": "ann@example.com", "bad": make(chan int)})
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer(secret, -time.Hour)

	token, err := issuer.Issue(map[string]any{"email": "ann@example.com"})
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	token, err := NewIssuer(secret, time.Hour).Issue(map[string]any{"email": "ann@example.com"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged, err := NewIssuer(secret, time.Hour).Issue(map[string]any{"email": "mallory@example.com"})
	require.NoError(t, err)
	parts[1] = strings.Split(forged, ".")[1]
	tampered := strings.Join(parts, ".")

	_, err = NewVerifier(secret).Verify(tampered)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, err := NewIssuer([]byte("other-secret"), time.Hour).Issue(map[string]any{"email": "ann@example.com"})
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsOtherSigningMethod(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"email": "ann@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(signed)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "   ", "not-a-token", "a.b.c"} {
		_, err := NewVerifier(secret).Verify(token)
		assert.ErrorIs(t, err, shared.ErrUnauthorized, token)
	}
}
