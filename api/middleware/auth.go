package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/marco-pos/api/responses"
	pkgAuth "github.com/angelmondragon/marco-pos/pkg/auth"
	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/marco-pos/pkg/errors"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the cashier
// identity. Without a configured secret the terminal runs unattended: every request
// acts as defaultCashier with the owner role.
func Auth(cfg config.JWTConfig, defaultCashier string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() {
				ctx := WithIdentity(r.Context(), defaultCashier, string(enums.MemberRoleOwner))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseCashierToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.Email, string(claims.Role))
			if logg != nil {
				ctx = logg.WithCashier(ctx, claims.Email)
				ctx = logg.WithActorRole(ctx, string(claims.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
