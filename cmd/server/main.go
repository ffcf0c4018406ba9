// Command koda-server starts the marketplace HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/config"
	"github.com/kodamarket/koda/internal/limiter"
	"github.com/kodamarket/koda/internal/migrate"
	"github.com/kodamarket/koda/internal/objstore"
	"github.com/kodamarket/koda/internal/payment/stripepay"
	"github.com/kodamarket/koda/internal/repository/postgres"
	httpserver "github.com/kodamarket/koda/internal/server/http"
	"github.com/kodamarket/koda/internal/service"
	"github.com/kodamarket/koda/internal/validate"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and serves HTTP until SIGINT/SIGTERM.
func main() {
	cfgPath := flag.String("config", "", "optional YAML config file (KODA_* env vars override it)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Log.Development {
		logger, _ = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTP.Addr),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	store, err := objstore.New(ctx, objstore.Config{
		Region:    cfg.S3.Region,
		Bucket:    cfg.S3.Bucket,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Endpoint:  cfg.S3.Endpoint,
	})
	if err != nil {
		logger.Fatal("object store", zap.Error(err))
	}

	pay := stripepay.New(stripepay.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		RefreshURL:    cfg.HTTP.PublicURL + "/dashboard",
	})

	// Repositories
	db := &postgres.DB{Pool: pool}
	users := postgres.NewUserRepo(db)
	products := postgres.NewProductRepo(db)
	purchases := postgres.NewPurchaseRepo(db)
	reviews := postgres.NewReviewRepo(db)
	carts := postgres.NewCartRepo(db)
	favorites := postgres.NewFavoriteRepo(db)
	notes := postgres.NewNotificationRepo(db)

	lim := limiter.NewPG(pool, cfg.RateLimit.Window, cfg.RateLimit.MaxHits)

	// Services
	svc := httpserver.Services{
		Checkout: service.NewCheckoutService(products, users, purchases, pay,
			service.CheckoutConfig{Currency: cfg.Stripe.Currency, PublicURL: cfg.HTTP.PublicURL}, logger),
		Webhooks: service.NewReconciler(pay, products, purchases, users, carts, notes, logger),
		Products: service.NewProductService(products, purchases, store, validate.New(),
			service.CatalogConfig{DefaultLimit: cfg.Catalog.DefaultLimit, MaxLimit: cfg.Catalog.MaxLimit}, logger),
		Reviews:  service.NewReviewService(reviews, products, purchases, notes, logger),
		Accounts: service.NewAccountService(users, purchases, pay, cfg.HTTP.PublicURL+"/dashboard", logger),
		Shopper:  service.NewShopperService(products, purchases, carts, favorites, notes),
		Uploads:  service.NewUploadService(store, logger),
	}

	app := httpserver.New(svc,
		httpserver.NewTokenVerifier([]byte(cfg.Auth.SigningKey), cfg.Auth.Leeway),
		limiter.NewGuard(lim, logger),
		cfg.HTTP.PublicURL,
		logger,
	).TrustProxies(cfg.HTTP.TrustedProxies)
	s := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- s.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown timed out", zap.Error(err))
			_ = s.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
