package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"adsduit/internal/accounts"
	"adsduit/internal/blocklist"
	"adsduit/internal/config"
	"adsduit/internal/handlers"
	"adsduit/internal/ledger"
	"adsduit/internal/session"
	"adsduit/internal/store"
	"adsduit/internal/tasks"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer db.Close()

	dir := accounts.NewDirectory(db)
	gatekeeper := session.NewGatekeeper(db, cfg.JWTSecret, log)
	bl := blocklist.NewManager(db, log)
	svc := ledger.NewService(db, dir, gatekeeper, ledger.AdminCredentials{
		Handle: cfg.AdminHandle,
		Secret: cfg.AdminSecret,
	}, log)
	issuer := tasks.NewIssuer(tasks.DefaultAdDuration)

	api := handlers.NewAPI(svc, gatekeeper, issuer, bl, log)
	router := handlers.NewRouter(api)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Infof("server started on %s", cfg.RunAddress)

	<-ctx.Done()

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %+v", err)
	}

	log.Info("server exited properly")
}

// openStore picks the backend: postgres when a database URI is set, the
// embedded file otherwise, and a throwaway in-memory store when neither is
// configured.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (store.RecordStore, error) {
	if cfg.DatabaseURI != "" {
		return store.NewPostgresStore(ctx, cfg.DatabaseURI, log)
	}
	if cfg.StorePath != "" {
		return store.NewBoltStore(cfg.StorePath, log)
	}
	log.Warn("no store configured, state will not survive a restart")
	return store.NewMemoryStore(), nil
}
