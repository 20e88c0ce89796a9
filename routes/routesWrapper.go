package routes

import (
	"storefront/ratelim"

	"github.com/julienschmidt/httprouter"
)

func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, d *Deps) {
	router.GET("/health", Index)
	AddAdminRoutes(router, rateLimiter, d)
	AddCartRoutes(router, rateLimiter, d)
	AddPayRoutes(router, rateLimiter, d)
	AddProductRoutes(router, rateLimiter, d)
	AddSessionRoutes(router, rateLimiter, d)
	AddWebSocketRoutes(router, rateLimiter, d)
}
