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

	"github.com/Pynex/Marketplace/internal/app"
	"github.com/Pynex/Marketplace/internal/clock"
	"github.com/Pynex/Marketplace/internal/config"
	"github.com/Pynex/Marketplace/internal/domain"
	"github.com/Pynex/Marketplace/internal/issuer"
	"github.com/Pynex/Marketplace/internal/storage/postgres"
	transporthttp "github.com/Pynex/Marketplace/internal/transport/http"
	"github.com/Pynex/Marketplace/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	cfg, err := config.Load(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	clk := clock.NewSystem()
	registryAddr := domain.Address(cfg.RegistryAddress)
	platform := domain.Address(cfg.PlatformOwner)

	registryRepo := postgres.NewRegistryRepository(pool)
	issuerRepo := postgres.NewIssuerRepository(pool)
	deployer := issuer.NewDeployer(issuerRepo, clk, platform, registryAddr)

	engine, err := app.NewSettlementEngine(cfg.CommissionPercent, platform, registryRepo)
	if err != nil {
		log.Fatalf("settlement engine: %v", err)
	}

	svc, err := app.NewRegistryService(app.RegistryConfig{
		Store:  registryRepo,
		Engine: engine,
		Deploy: func(ctx context.Context, collectionID int64, owner domain.Address, baseURI string) (app.Issuer, error) {
			return deployer.Deploy(collectionID, owner, baseURI)
		},
		Tokens:   app.NewTokenSource(clk),
		Notifier: app.NewLogNotifier(logger),
		Clock:    clk,
		Address:  registryAddr,
		Platform: platform,
	})
	if err != nil {
		log.Fatalf("registry service: %v", err)
	}

	if err := restoreIssuers(startupCtx, svc, registryRepo, deployer); err != nil {
		log.Fatalf("restore issuers: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/collections", transporthttp.HandleCollections(svc, svc))
	mux.Handle("/collections/", transporthttp.HandleCollectionTree(svc))
	mux.Handle("/purchases/batch", transporthttp.HandleBatchBuy(svc))
	mux.Handle("/vouchers", transporthttp.HandleGetVoucher(svc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

// restoreIssuers rebuilds the issuer arena from the persisted catalog so
// every existing collection can mint again after a restart.
func restoreIssuers(ctx context.Context, svc *app.RegistryService, registryRepo *postgres.RegistryRepository, deployer *issuer.Deployer) error {
	collections, err := registryRepo.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, c := range collections {
		contract, err := deployer.Restore(c)
		if err != nil {
			return err
		}
		svc.RestoreIssuer(c.ID, contract)
	}
	return nil
}
