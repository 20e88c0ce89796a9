package utils

import (
	"net/http"

	"storefront/globals"
	"storefront/session"
)

// GetSessionFromRequest returns the session attached by middleware.Session.
func GetSessionFromRequest(r *http.Request) *session.Session {
	s, _ := r.Context().Value(globals.SessionKey).(*session.Session)
	return s
}

// GetTokenFromRequest returns the bearer token, or "" when logged out.
func GetTokenFromRequest(r *http.Request) string {
	tok, _ := r.Context().Value(globals.TokenKey).(string)
	return tok
}

func GetRoleFromRequest(r *http.Request) string {
	role, _ := r.Context().Value(globals.RoleKey).(string)
	return role
}
