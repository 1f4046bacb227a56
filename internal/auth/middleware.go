package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"hrcore/internal/models"
	"hrcore/internal/rbac"
)

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Authenticate gates every protected route. It walks the request through
// bearer extraction, signature/expiry verification, the access-token
// revocation list and an active-user lookup, and rejects at the first
// failed step. It never mutates token or identity state.
func Authenticate(db *gorm.DB, rl RevocationList, issuer Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing credentials")
				return
			}
			claims, err := issuer.Verify(strings.TrimPrefix(h, "Bearer "), TypeAccess)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if rl.IsRevoked(claims.JTI) {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			var user models.User
			if err := db.First(&user, "id = ?", claims.Subject).Error; err != nil || !user.IsActive {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequirePermission runs after Authenticate and rejects with 403 unless the
// current user's role graph grants the named permission. The missing
// permission is named in the body; authentication failures never are.
func RequirePermission(db *gorm.DB, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := rbac.HasPermission(db, Subject(r.Context()), name)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "permission check failed")
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "insufficient permissions, required: "+name)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission passes when the user holds at least one of the names.
func RequireAnyPermission(db *gorm.DB, names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := rbac.HasAnyPermission(db, Subject(r.Context()), names...)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "permission check failed")
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "insufficient permissions, required any of: "+strings.Join(names, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole checks role membership by name rather than permission.
func RequireRole(db *gorm.DB, roleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := rbac.HasRole(db, Subject(r.Context()), roleName)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "role check failed")
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "insufficient permissions, required role: "+roleName)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
