package routes

import (
	"context"
	"net/http"

	"storefront/ratelim"
	"storefront/receipt"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// AddPayRoutes wires the recharge page endpoints.
func AddPayRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	router.GET("/api/payment/config", rateLimiter.Limit(d.GetPaymentConfig))
	router.GET("/api/payment/qr/:kind", rateLimiter.Limit(d.GetPaymentQR))
}

func (d *Deps) GetPaymentConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cfg, err := d.Backend.PaymentConfig(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cfg)
}

// GetPaymentQR renders the WeChat id or the USDT address as a QR code.
func (d *Deps) GetPaymentQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	kind := ps.ByName("kind")
	if kind != "wechat" && kind != "usdt" {
		utils.RespondWithError(w, http.StatusNotFound, "unknown payment method")
		return
	}

	cfg, err := d.Backend.PaymentConfig(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}
	text := cfg.WechatID
	if kind == "usdt" {
		text = cfg.UsdtAddress
	}
	if text == "" {
		utils.RespondWithError(w, http.StatusNotFound, "payment method not configured")
		return
	}

	png, err := receipt.QR(text)
	if err != nil {
		d.Log.Error("qr render failed", zap.String("kind", kind), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
