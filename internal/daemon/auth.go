package daemon

import (
	"encoding/json"
	"net/http"
	"strings"

	"mediacat/internal/auth"
)

// authMiddleware returns a middleware validating bearer credentials. A request
// passes when its token matches the static API token or resolves to a live
// session; session users additionally need a role that allows writes for
// mutating methods. With no static token and no session service, all requests
// pass.
func authMiddleware(token string, sessions *auth.Service, next http.HandlerFunc) http.HandlerFunc {
	if token == "" && sessions == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		bearer := strings.TrimPrefix(header, "Bearer ")
		if token != "" && bearer == token {
			next(w, r)
			return
		}
		if sessions != nil {
			if user, err := sessions.Authenticate(r.Context(), bearer); err == nil && user != nil {
				if isWriteMethod(r.Method) && !user.Role.AllowsWrite() {
					writeAuthError(w, http.StatusForbidden, "forbidden")
					return
				}
				next(w, r)
				return
			}
		}
		writeAuthError(w, http.StatusUnauthorized, "unauthorized")
	}
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
