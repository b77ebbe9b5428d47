package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/baharkarakas/averulo-backend/internal/api/httpx"
	"github.com/baharkarakas/averulo-backend/internal/auth"
	"github.com/baharkarakas/averulo-backend/internal/models"
)

type AuthMiddleware struct {
	TM  *auth.TokenManager
	Dev bool
}

func NewAuthMiddleware(tm *auth.TokenManager, dev bool) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, Dev: dev}
}

// Auth requires "Authorization: Bearer <jwt>". In dev, "Bearer dev-<uuid>" is also
// accepted and authenticates as that user id with role USER. Elevated roles always
// need a signed token.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[7:])

		if m.Dev && strings.HasPrefix(token, "dev-") {
			uid := strings.TrimPrefix(token, "dev-")
			if _, err := uuid.Parse(uid); err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid dev token", nil)
				return
			}
			ctx := WithIdentity(r.Context(), Identity{UserID: uid, Role: models.RoleUser})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		claims, err := m.TM.Parse(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		ctx := WithIdentity(r.Context(), Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
