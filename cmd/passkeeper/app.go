package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nkiryanov/passkeeper/internal/db"
	"github.com/nkiryanov/passkeeper/internal/handlers"
	"github.com/nkiryanov/passkeeper/internal/handlers/middleware"
	"github.com/nkiryanov/passkeeper/internal/logger"
	"github.com/nkiryanov/passkeeper/internal/repository/postgres"
	"github.com/nkiryanov/passkeeper/internal/service/auth"
	"github.com/nkiryanov/passkeeper/internal/service/auth/blacklist"
	"github.com/nkiryanov/passkeeper/internal/service/auth/refreshstore"
	"github.com/nkiryanov/passkeeper/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/passkeeper/internal/service/credential"
	"github.com/nkiryanov/passkeeper/internal/service/secret"
	"github.com/nkiryanov/passkeeper/internal/service/sharing"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	// Run sweeps revoked tokens until shutdown
	revoked *blacklist.Blacklist
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Token stores live in process memory, owned here: created on start,
	// gone on shutdown
	revoked := blacklist.New(blacklist.WithSweepInterval(c.SweepInterval))
	refreshStore := refreshstore.New(refreshstore.WithTokenTTL(c.RefreshTokenTTL))

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey, AccessTTL: c.AccessTokenTTL}, revoked)
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{}, tokenManager, refreshStore, revoked, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	cipher, err := secret.NewCipher(c.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("error while creating secret cipher. Err: %w", err)
	}
	gate, err := secret.NewGate(cipher, nil, storage.User(), storage.Credential())
	if err != nil {
		return nil, fmt.Errorf("error while creating secret gate. Err: %w", err)
	}

	sharingService, err := sharing.NewService(gate, storage.Share(), storage.Credential(), storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating sharing service. Err: %w", err)
	}
	credService, err := credential.NewService(cipher, sharingService, storage.Credential(), storage.Category(), log)
	if err != nil {
		return nil, fmt.Errorf("error while creating credential service. Err: %w", err)
	}

	// Initialize handlers
	mux := handlers.NewRouter(
		handlers.NewAuth(authService),
		handlers.NewUser(gate),
		handlers.NewCredential(credService, gate),
		handlers.NewShare(sharingService),
		middleware.AuthMiddleware(authService),
		middleware.LoggerMiddleware(log),
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		revoked:    revoked,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	// Sweep revoked tokens in background, stops with ctx
	go s.revoked.Run(ctx)

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
