package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"storefront/api"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

type statusBody struct {
	Status string `json:"status"`
}

func (d *Deps) AdminOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	orders, err := d.Backend.AdminOrders(ctx, utils.GetTokenFromRequest(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": orders})
}

func (d *Deps) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body statusBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := d.Backend.UpdateOrderStatus(ctx, utils.GetTokenFromRequest(r), ps.ByName("id"), body.Status); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Order status updated"})
}

func (d *Deps) ExportOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	format := ps.ByName("format")
	data, err := d.Backend.ExportOrders(ctx, utils.GetTokenFromRequest(r), format)
	if err != nil {
		respondErr(w, err)
		return
	}
	contentType := "text/csv"
	if format == api.ExportPDF {
		contentType = "application/pdf"
	}
	utils.RespondWithFile(w, contentType, "orders."+format, data)
}

// AdjustBalance credits or debits a user. amount may be sent as a JSON
// number or string; it is validated before anything reaches the backend.
func (d *Deps) AdjustBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Amount json.RawMessage `json:"amount"`
		Note   string          `json:"note"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	u, err := d.Backend.AdjustBalance(ctx, utils.GetTokenFromRequest(r), ps.ByName("id"), rawText(body.Amount), body.Note)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": u})
}

func (d *Deps) UpdateUserStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body statusBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		respondErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	u, err := d.Backend.UpdateUserStatus(ctx, utils.GetTokenFromRequest(r), ps.ByName("id"), body.Status)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": u})
}

// rawText unquotes a JSON string and passes any other literal through.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}
