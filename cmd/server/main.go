package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/office-seat-booking/internal/auth"
	"github.com/iliyamo/office-seat-booking/internal/config"
	"github.com/iliyamo/office-seat-booking/internal/database"
	"github.com/iliyamo/office-seat-booking/internal/handler"
	"github.com/iliyamo/office-seat-booking/internal/middleware"
	"github.com/iliyamo/office-seat-booking/internal/queue"
	"github.com/iliyamo/office-seat-booking/internal/repository"
	"github.com/iliyamo/office-seat-booking/internal/router"
	"github.com/iliyamo/office-seat-booking/internal/service"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis backs sessions, the rate limiter and the seat cache.  Without
	// it sessions live in memory and the other two are skipped.
	rdb := config.NewRedisClient(cfg.Redis)
	var sessions auth.SessionStore
	if rdb != nil {
		defer rdb.Close()
		sessions = auth.NewRedisSessionStore(rdb)
	} else {
		log.Printf("redis unavailable at %s; using in-memory sessions", cfg.Redis.Addr)
		sessions = auth.NewMemorySessionStore()
	}

	providerHTTP := &http.Client{Timeout: cfg.ProviderTimeout}
	verifier := auth.NewVerifier(auth.NewKeySet(cfg.JWKSURL, providerHTTP, cfg.JWKSTTL, cfg.JWKSMinRefresh), cfg.Issuer)
	client := auth.NewClient(auth.ClientConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthEndpoint: cfg.AuthEndpoint,
		TokenURL:     cfg.TokenURL,
		RedirectURI:  cfg.RedirectURI,
	}, providerHTTP)
	signer, err := auth.NewSigner(cfg.SessionSecret)
	if err != nil {
		log.Fatalf("session signer: %v", err)
	}
	authn := &auth.Authenticator{
		Mode:       cfg.AuthMode,
		Sessions:   sessions,
		Verifier:   verifier,
		Signer:     signer,
		SessionTTL: cfg.SessionTTL,
		Secure:     cfg.CookieSecure,
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartSeatEventConsumer(ctx, cfg.AMQPURL, cfg.EventLogPath); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("seat event consumer stopped: %v", err)
			}
		}()
	}

	employees := repository.NewEmployeeRepo(db)
	ledger := service.NewLedger(repository.NewSeatRepo(db), employees, events, cfg.SeatCount, cfg.SeatPrice)
	if err := ledger.Seed(ctx); err != nil {
		log.Fatalf("seed: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("[HTTP] method=%s uri=%s status=%d latency=%s request_id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, &handler.AuthHandler{
		Provider:    client,
		Verifier:    verifier,
		Auth:        authn,
		Directory:   service.NewDirectory(employees),
		FrontendURL: cfg.FrontendURL,
		Timeout:     2 * cfg.ProviderTimeout,
	})
	router.RegisterSeats(e,
		&handler.SeatHandler{
			Ledger:  ledger,
			IsAdmin: cfg.IsAdmin,
			Invalidate: func(ctx context.Context) error {
				return middleware.InvalidateCache(ctx, rdb, cfg.Cache, "/seats")
			},
		},
		middleware.Authenticate(authn),
		middleware.NewRedisCache(cfg.Cache, rdb),
		middleware.NewTokenBucket(cfg.RateLimit, rdb),
	)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s auth_mode=%s)", addr, cfg.Env, cfg.AuthMode)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
