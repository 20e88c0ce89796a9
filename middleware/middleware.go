package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"storefront/globals"
	"storefront/session"
	"storefront/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// Middleware wraps a route handler.
type Middleware func(httprouter.Handle) httprouter.Handle

// Chain composes ms, first one outermost.
func Chain(ms ...Middleware) Middleware {
	return func(h httprouter.Handle) httprouter.Handle {
		for i := len(ms) - 1; i >= 0; i-- {
			h = ms[i](h)
		}
		return h
	}
}

// Session attaches the caller's session, minting one (and its cookie) on
// first contact. The id is echoed in X-Session-ID for cookieless clients.
func Session(reg *session.Registry, secureCookie bool) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			id := session.IDFromRequest(r)
			if id == "" {
				id = session.NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     session.CookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			s, err := reg.Get(r.Context(), id)
			if err != nil {
				utils.RespondWithError(w, http.StatusServiceUnavailable, "session unavailable")
				return
			}
			w.Header().Set(session.HeaderName, id)
			ctx := context.WithValue(r.Context(), globals.SessionKey, s)
			next(w, r.WithContext(ctx), ps)
		}
	}
}

// Bearer puts the caller's token in the context: the Authorization header
// when present, else the token stored in the session. Missing tokens are
// not an error here.
func Bearer(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := ""
		if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			token = strings.TrimSpace(h[7:])
		}
		if token == "" {
			if s := utils.GetSessionFromRequest(r); s != nil {
				tok, err := s.Token(r.Context())
				if err != nil {
					utils.RespondWithError(w, http.StatusServiceUnavailable, "session unavailable")
					return
				}
				token = tok
			}
		}
		if token != "" {
			r = r.WithContext(context.WithValue(r.Context(), globals.TokenKey, token))
		}
		next(w, r, ps)
	}
}

// JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Role   Roles  `json:"role"`
	jwt.RegisteredClaims
}

// Roles accepts the role claim as a string or a list of strings.
type Roles []string

func (r *Roles) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one != "" {
			*r = Roles{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

func (r Roles) Has(role string) bool {
	for _, v := range r {
		if v == role {
			return true
		}
	}
	return false
}

// ParseClaims reads the token's claims without checking the signature. The
// backend verifies tokens; this is for hiding admin routes only.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// RequireRoles lets through callers whose token carries one of roles. Run
// after Bearer.
func RequireRoles(roles ...string) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			token := utils.GetTokenFromRequest(r)
			if token == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Please log in")
				return
			}
			claims, err := ParseClaims(token)
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			for _, role := range roles {
				if claims.Role.Has(role) {
					ctx := context.WithValue(r.Context(), globals.RoleKey, role)
					next(w, r.WithContext(ctx), ps)
					return
				}
			}
			utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		}
	}
}

// SecurityHeaders applies a set of recommended HTTP security headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}
