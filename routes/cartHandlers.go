package routes

import (
	"context"
	"net/http"
	"time"

	"storefront/checkout"
	"storefront/hub"
	"storefront/models"
	"storefront/notify"
	"storefront/receipt"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// checkoutTimeout bounds a whole checkout. It matches the lock TTL so a
// second checkout cannot start while the first still runs.
const checkoutTimeout = checkout.LockTTL

func (d *Deps) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	utils.RespondWithJSON(w, http.StatusOK, s.Cart.Snapshot())
}

func (d *Deps) AddCartItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p models.Product
	if err := utils.DecodeJSON(r, &p); err != nil {
		respondErr(w, err)
		return
	}
	s := utils.GetSessionFromRequest(r)
	snap, err := s.Cart.Add(p)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

func (d *Deps) IncrementCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	utils.RespondWithJSON(w, http.StatusOK, s.Cart.Increment(ps.ByName("identity")))
}

func (d *Deps) DecrementCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	utils.RespondWithJSON(w, http.StatusOK, s.Cart.Decrement(ps.ByName("identity")))
}

func (d *Deps) RemoveCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	utils.RespondWithJSON(w, http.StatusOK, s.Cart.Remove(ps.ByName("identity")))
}

func (d *Deps) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	utils.RespondWithJSON(w, http.StatusOK, s.Cart.Clear())
}

// PlaceOrder submits every cart line as an order. The notices raised are
// returned in the body and pushed to the session's websocket clients.
func (d *Deps) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := utils.GetSessionFromRequest(r)

	// Orders already sent must not be abandoned when the client goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), checkoutTimeout)
	defer cancel()

	rec := &notify.Recorder{}
	notifiers := []notify.Notifier{rec, notify.NewLog(d.Log.With(zap.String("session", s.ID)))}
	if d.Hub != nil {
		notifiers = append(notifiers, notify.Room(d.Hub, s.ID))
	}

	res, err := d.Checkout.Run(ctx, checkout.Checkout{
		SessionID: s.ID,
		Token:     utils.GetTokenFromRequest(r),
		Cart:      s.Cart,
		Notifier:  notify.Multi(notifiers...),
	})
	if err != nil {
		status, msg := statusOf(err)
		utils.RespondWithNotices(w, status, msg, rec.Notices())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"result":  res,
		"notices": rec.Notices(),
		"cart":    s.Cart.Snapshot(),
	})
}

// CartReceipt renders the cart as a PDF. The customer name is filled in
// when the profile can be fetched.
func (d *Deps) CartReceipt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	meta := receipt.Meta{SessionID: s.ID, Generated: time.Now()}

	if token := utils.GetTokenFromRequest(r); token != "" {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		if p, err := d.Backend.Profile(ctx, token); err == nil {
			meta.Customer = p.Name
		} else {
			d.Log.Debug("receipt without profile", zap.String("session", s.ID), zap.Error(err))
		}
		cancel()
	}

	pdf, err := receipt.CartPDF(s.Cart.Snapshot(), meta)
	if err != nil {
		d.Log.Error("receipt render failed", zap.String("session", s.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}
	utils.RespondWithFile(w, "application/pdf", "cart-"+s.ID+".pdf", pdf)
}

// CartSocket streams the session's cart snapshots and toasts.
func (d *Deps) CartSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s := utils.GetSessionFromRequest(r)
	if err := d.Hub.Serve(w, r, s.ID, hub.CartFrame(s.Cart.Snapshot())); err != nil {
		d.Log.Debug("websocket upgrade failed", zap.String("session", s.ID), zap.Error(err))
	}
}
