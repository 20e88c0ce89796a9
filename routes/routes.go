package routes

import (
	"context"
	"net/http"
	"time"

	"storefront/checkout"
	"storefront/hub"
	"storefront/middleware"
	"storefront/models"
	"storefront/ratelim"
	"storefront/session"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// Backend is the part of the REST backend the handlers use; *api.Client
// implements it.
type Backend interface {
	Profile(ctx context.Context, token string) (*models.Profile, error)
	PublicProducts(ctx context.Context) ([]models.Product, error)
	PaymentConfig(ctx context.Context) (*models.PaymentConfig, error)
	AdminOrders(ctx context.Context, token string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID, status string) error
	ExportOrders(ctx context.Context, token, format string) ([]byte, error)
	AdjustBalance(ctx context.Context, token, userID, amount, note string) (*models.AdminUser, error)
	UpdateUserStatus(ctx context.Context, token, userID, status string) (*models.AdminUser, error)
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Sessions     *session.Registry
	Backend      Backend
	Checkout     *checkout.Submitter
	Hub          *hub.Hub
	Log          *zap.Logger
	SecureCookie bool
}

func (d *Deps) base(rateLimiter *ratelim.RateLimiter) middleware.Middleware {
	return middleware.Chain(
		rateLimiter.Limit,
		middleware.Session(d.Sessions, d.SecureCookie),
		middleware.Bearer,
	)
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Write([]byte("200"))
}

func AddCartRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	chain := d.base(rateLimiter)
	router.GET("/api/cart", chain(d.GetCart))
	router.POST("/api/cart/items", chain(d.AddCartItem))
	router.POST("/api/cart/items/:identity/increment", chain(d.IncrementCartItem))
	router.POST("/api/cart/items/:identity/decrement", chain(d.DecrementCartItem))
	router.DELETE("/api/cart/items/:identity", chain(d.RemoveCartItem))
	router.DELETE("/api/cart", chain(d.ClearCart))
	router.POST("/api/cart/checkout", chain(d.PlaceOrder))
	router.GET("/api/cart/receipt.pdf", chain(d.CartReceipt))
}

func AddSessionRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	chain := d.base(rateLimiter)
	router.PUT("/api/session/token", chain(d.SetToken))
	router.DELETE("/api/session", chain(d.Logout))
	router.GET("/api/profile", chain(d.GetProfile))
}

func AddProductRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	router.GET("/api/products", rateLimiter.Limit(d.GetProducts))
}

func AddAdminRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	chain := middleware.Chain(d.base(rateLimiter), middleware.RequireRoles("admin"))
	router.GET("/api/admin/orders", chain(d.AdminOrders))
	router.PUT("/api/admin/orders/:id/status", chain(d.UpdateOrderStatus))
	router.GET("/api/admin/orders/export/:format", chain(d.ExportOrders))
	router.POST("/api/admin/users/:id/adjust-balance", chain(d.AdjustBalance))
	router.PUT("/api/admin/users/:id/status", chain(d.UpdateUserStatus))
}

func AddWebSocketRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	router.GET("/ws/cart", d.base(rateLimiter)(d.CartSocket))
}
