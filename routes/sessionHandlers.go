package routes

import (
	"context"
	"net/http"
	"strings"

	"storefront/session"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// SetToken stores the token issued by the backend at login.
func (d *Deps) SetToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Token string `json:"token"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	body.Token = strings.TrimSpace(body.Token)
	if body.Token == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	s := utils.GetSessionFromRequest(r)
	if err := s.SetToken(r.Context(), body.Token); err != nil {
		d.Log.Error("store token failed", zap.String("session", s.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
}

// Logout clears the cart and forgets the token.
func (d *Deps) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	if err := d.Sessions.End(r.Context(), s.ID); err != nil {
		d.Log.Error("logout failed", zap.String("session", s.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   d.SecureCookie,
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "logged out"})
}

// GetProfile returns the signed-in user with balance and role.
func (d *Deps) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := d.Backend.Profile(ctx, utils.GetTokenFromRequest(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": p})
}

func (d *Deps) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := d.Backend.PublicProducts(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"products": products})
}
