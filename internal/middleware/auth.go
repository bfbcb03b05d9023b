package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"tablebuilder/internal/domain"
)

// AuthConfig configures AuthMiddleware.
type AuthConfig struct {
	Validator JWTValidator
	// NameClaim is the JWT claim used as the principal name.
	NameClaim string
	// RequireForReads makes GET and HEAD requests need a token too.
	RequireForReads bool
}

// AuthMiddleware authenticates Bearer tokens and stores the principal in the
// request context. Writes always need a valid token; reads pass without one
// unless RequireForReads is set. A token that is present but invalid is
// rejected on every method.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, hasToken := bearerToken(r)
			if !hasToken {
				if isRead(r.Method) && !cfg.RequireForReads {
					next.ServeHTTP(w, r)
					return
				}
				writeUnauthorized(w, "unauthorized: provide a valid JWT Bearer token")
				return
			}

			claims, err := cfg.Validator.Validate(r.Context(), token)
			if err != nil {
				writeUnauthorized(w, "unauthorized: invalid token")
				return
			}
			name := claims.PrincipalName(cfg.NameClaim)
			if name == "" {
				writeUnauthorized(w, "unauthorized: token has no subject")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{Name: name, Type: "user"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tablebuilder"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    http.StatusUnauthorized,
		"message": msg,
	})
}
