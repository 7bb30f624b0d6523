package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authhandler "certis/internal/auth/handler"
	authmetrics "certis/internal/auth/metrics"
	authservice "certis/internal/auth/service"
	certhandler "certis/internal/certificate/handler"
	certmetrics "certis/internal/certificate/metrics"
	certservice "certis/internal/certificate/service"
	certstore "certis/internal/certificate/store"
	identityhandler "certis/internal/identity/handler"
	identityservice "certis/internal/identity/service"
	adminstore "certis/internal/identity/store/admin"
	holderstore "certis/internal/identity/store/holder"
	"certis/internal/jwttoken"
	"certis/internal/platform/config"
	"certis/internal/platform/database"
	"certis/internal/platform/health"
	"certis/internal/platform/logger"
	"certis/internal/seeder"
	httptransport "certis/internal/transport/http"
	"certis/migrations"
)

const tokenIssuer = "certis"

// main wires dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing certis",
		"addr", cfg.Addr,
		"institution", cfg.InstitutionName,
		"postgres", cfg.DatabaseURL != "",
	)

	pool, err := database.New(database.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var (
		admins  authservice.AdminStore
		holders certservice.HolderDirectory
		certs   certservice.Store

		identityAdmins identityservice.AdminStore
		identityHolder identityservice.HolderStore
		authHolders    authservice.HolderStore
		seedCounter    seeder.AdminCounter
	)

	if pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrations.Apply(ctx, pool.DB()); err != nil {
			cancel()
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		cancel()

		a := adminstore.NewPostgres(pool.DB())
		h := holderstore.NewPostgres(pool.DB())
		admins, identityAdmins, seedCounter = a, a, a
		holders, identityHolder, authHolders = h, h, h
		certs = certstore.NewPostgres(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		a := adminstore.New()
		h := holderstore.New()
		admins, identityAdmins, seedCounter = a, a, a
		holders, identityHolder, authHolders = h, h, h
		certs = certstore.NewInMemory()
	}

	tokens := jwttoken.New(cfg.JWTSigningKey, tokenIssuer, cfg.TokenTTL)

	identitySvc := identityservice.New(identityAdmins, identityHolder,
		identityservice.WithLogger(log),
	)
	authSvc := authservice.New(admins, authHolders, tokens,
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
	)
	certSvc := certservice.New(certs, holders, cfg.InstitutionName,
		certservice.WithLogger(log),
		certservice.WithMetrics(certmetrics.New()),
	)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = seeder.New(identitySvc, seedCounter, log).SeedInitialAdmin(seedCtx,
		cfg.SeedAdminEmail, cfg.SeedAdminSecret, cfg.SeedAdminName, cfg.SeedAdminDept)
	seedCancel()
	if err != nil {
		log.Error("failed to seed initial admin", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New()
	if pool != nil {
		healthHandler.RegisterCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	router := httptransport.NewRouter(httptransport.Handlers{
		Auth:        authhandler.New(authSvc, log),
		Identity:    identityhandler.New(identitySvc, log),
		Certificate: certhandler.New(certSvc, log),
		Health:      healthHandler,
	}, authSvc, log)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
