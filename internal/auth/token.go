package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sngm3741/survey-haven/api/internal/shared"
)

// Claims は検証済みトークンの中身。発行時の任意の項目は Values にそのまま残り、
// ロール判定は Email をキーに行う。
type Claims struct {
	Email     string
	ID        string
	ExpiresAt time.Time
	Values    jwt.MapClaims
}

// Issuer signs caller-supplied identity claims with the server secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an Issuer producing HS256 tokens valid for ttl.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: append([]byte(nil), secret...), ttl: ttl}
}

// Issue はリクエストボディの内容をそのままクレームとして署名し、有効期限を埋め込む。
// exp/iat/jti はサーバー側で上書きし、nbf は受け付けない。
func (i *Issuer) Issue(identity map[string]any) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("token secret is not configured")
	}

	claims := jwt.MapClaims{}
	for key, value := range identity {
		claims[key] = value
	}

	delete(claims, "nbf")

	now := time.Now()
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(i.ttl))
	claims["jti"] = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verifier checks signature and expiry of bearer tokens.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier returns a Verifier for tokens signed by an Issuer sharing secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: append([]byte(nil), secret...), leeway: 30 * time.Second}
}

// Verify は署名・署名方式・有効期限を検証し、失敗時は shared.ErrUnauthorized を返す。
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", shared.ErrUnauthorized)
	}

	values := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, values, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", shared.ErrUnauthorized)
	}

	claims := &Claims{Values: values}
	claims.Email, _ = values["email"].(string)
	claims.ID, _ = values["jti"].(string)
	if exp, err := values.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
