package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bgoutham/limited/internal/config"
	"github.com/bgoutham/limited/internal/credstore"
	"github.com/bgoutham/limited/internal/session"
	"github.com/bgoutham/limited/internal/web"
	"github.com/bgoutham/limited/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New("web", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := credstore.OpenSQLite(cfg.StatePath)
	if err != nil {
		log.Error("credential store init failed", "error", err, "path", cfg.StatePath)
		os.Exit(1)
	}
	defer store.Close()

	sessions, err := session.NewManager(session.Config{
		BaseURL:    cfg.APIBaseURL,
		Store:      store,
		Logger:     log,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	})
	if err != nil {
		log.Error("session manager init failed", "error", err)
		os.Exit(1)
	}
	if err := sessions.Restore(); err != nil {
		log.Warn("session restore failed, starting anonymous", "error", err)
	}

	handler, err := web.New(web.Config{
		Sessions:      sessions,
		Logger:        log,
		RedirectDelay: cfg.RedirectDelay,
	})
	if err != nil {
		log.Error("web server init failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("web client starting", "addr", cfg.WebAddr, "api", cfg.APIBaseURL)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("web client stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
