package main

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/api"
	"storefront/cart"
	"storefront/checkout"
	"storefront/config"
	"storefront/hub"
	"storefront/middleware"
	"storefront/models"
	"storefront/mongostore"
	"storefront/ratelim"
	"storefront/rdx"
	"storefront/routes"
	"storefront/session"
	"storefront/storage"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}

func burst(perSecond float64) int {
	return int(math.Max(1, math.Ceil(perSecond)))
}

func main() {
	// load .env if present
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	if envErr != nil {
		logger.Info("no .env file found; using system environment")
	}

	// prices travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	defer cancelConnect()

	var backing storage.Storage = storage.NewMemory()
	var locker checkout.Locker = checkout.NewMemoryLocker()
	if cfg.RedisURL != "" {
		conn, err := rdx.NewClient(connectCtx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("redis unavailable", zap.Error(err))
		}
		defer conn.Close()
		backing = rdx.NewStorage(conn, cfg.CartTTL)
		locker = rdx.NewLocker(conn)
		logger.Info("using redis", zap.String("addr", cfg.RedisURL))
	}
	if cfg.CartPersist == config.PersistMongo {
		mc, err := mongostore.Connect(connectCtx, cfg.MongoURL)
		if err != nil {
			logger.Fatal("mongo unavailable", zap.Error(err))
		}
		defer mc.Disconnect(context.Background())
		ms := mongostore.New(mc.Database(cfg.MongoDatabase).Collection(mongostore.DefaultCollection), cfg.CartTTL)
		if err := ms.EnsureIndexes(connectCtx); err != nil {
			logger.Warn("mongo ttl index", zap.Error(err))
		}
		backing = ms
		logger.Info("using mongo", zap.String("db", cfg.MongoDatabase))
	}

	// initialize cart hub
	cartHub := hub.NewHub(logger)
	cartHub.AllowOrigins(cfg.AllowedOrigins...)
	go cartHub.Run()

	sessions := session.New(backing,
		session.WithCartOptions(cart.WithKeyFunc(cfg.CartKey)),
		session.WithPersistence(cfg.CartPersist != config.PersistMemory),
		session.WithObserver(func(id string, snap models.CartSnapshot) { cartHub.PublishCart(id, snap) }),
		session.WithLogger(logger),
	)
	go sessions.Janitor(ctx, time.Minute, cfg.CartTTL)

	client := api.New(cfg.APIBaseURL, cfg.APITimeout, logger)
	submitter := checkout.New(client,
		checkout.WithPolicy(cfg.ClearPolicy),
		checkout.WithLimiter(rate.NewLimiter(rate.Limit(cfg.OrderRate), burst(cfg.OrderRate))),
		checkout.WithConcurrency(cfg.OrderConcurrency),
		checkout.WithLocker(locker),
		checkout.WithLogger(logger),
	)

	// initialize rate limiter
	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimit, burst(cfg.RateLimit))
	go rateLimiter.Run(ctx)

	router := httprouter.New()
	routes.RoutesWrapper(router, rateLimiter, &routes.Deps{
		Sessions:     sessions,
		Backend:      client,
		Checkout:     submitter,
		Hub:          cartHub,
		Log:          logger,
		SecureCookie: cfg.SecureCookie,
	})

	// apply middleware: logging → security headers → CORS → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", session.HeaderName},
		ExposedHeaders:   []string{session.HeaderName},
		AllowCredentials: true,
	}).Handler(router)

	handler := middleware.Logging(logger)(middleware.SecurityHeaders(corsHandler))

	// create HTTP server; checkout may run up to its lock TTL
	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      checkout.LockTTL + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		logger.Info("shutting down cart hub")
		cartHub.Stop()
	})

	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Port),
			zap.String("backend", cfg.APIBaseURL),
			zap.Stringer("clear_policy", cfg.ClearPolicy),
			zap.String("cart_persist", cfg.CartPersist))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe error", zap.Error(err))
		}
	}()

	// wait for interrupt or SIGTERM
	<-ctx.Done()

	logger.Info("shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("server stopped cleanly")
}
