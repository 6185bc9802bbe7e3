package authhttp

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sngm3741/survey-haven/api/internal/auth"
	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/common"
	"github.com/sngm3741/survey-haven/api/internal/shared"
	"github.com/sngm3741/survey-haven/api/internal/user/domain"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RoleLookup resolves whether the user stored under email holds role.
type RoleLookup interface {
	HasRole(ctx context.Context, email string, role domain.Role) (bool, error)
}

// Guard はアクセス制御ミドルウェア。トークン検証とロール判定の 2 段で構成する。
type Guard struct {
	logger   *log.Logger
	verifier TokenVerifier
	roles    RoleLookup
	timeout  time.Duration
}

// NewGuard constructs a Guard. timeout bounds the role lookup.
func NewGuard(logger *log.Logger, verifier TokenVerifier, roles RoleLookup, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Guard{logger: logger, verifier: verifier, roles: roles, timeout: timeout}
}

// Authenticate は Authorization ヘッダーの Bearer トークンを検証し、クレームをコンテキストへ詰める。
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			common.WriteError(g.logger, w, err)
			return
		}

		claims, err := g.verifier.Verify(token)
		if err != nil {
			common.WriteError(g.logger, w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(common.ContextWithClaims(r.Context(), claims)))
	})
}

// RequireRole returns middleware rejecting callers whose stored role differs
// from role. It must be mounted after Authenticate.
func (g *Guard) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := common.ClaimsFromContext(r.Context())
			if !ok {
				g.logger.Printf("role guard %q mounted without authentication", role)
				common.WriteError(g.logger, w, fmt.Errorf("role guard without claims"))
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
			defer cancel()

			if err := authorize(ctx, g.roles, claims, role); err != nil {
				common.WriteError(g.logger, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize はトークンのクレームに含まれる email でユーザーを引き、ロールが一致しなければ ErrForbidden を返す。
func authorize(ctx context.Context, roles RoleLookup, claims *auth.Claims, role domain.Role) error {
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return shared.ErrForbidden
	}
	ok, err := roles.HasRole(ctx, email, role)
	if err != nil {
		return fmt.Errorf("role lookup: %w", err)
	}
	if !ok {
		return shared.ErrForbidden
	}
	return nil
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", shared.ErrUnauthorized)
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: bearer token required", shared.ErrUnauthorized)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", shared.ErrUnauthorized)
	}
	return token, nil
}
