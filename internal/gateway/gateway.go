// ABOUTME: Gateway orchestrator wiring store, session registry, services, and HTTP server
// ABOUTME: Owns startup and graceful shutdown of every component

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/devmesh/realtime-gateway/internal/auth"
	"github.com/devmesh/realtime-gateway/internal/config"
	"github.com/devmesh/realtime-gateway/internal/dispatch"
	"github.com/devmesh/realtime-gateway/internal/hookdedupe"
	"github.com/devmesh/realtime-gateway/internal/messaging"
	"github.com/devmesh/realtime-gateway/internal/notify"
	"github.com/devmesh/realtime-gateway/internal/session"
	"github.com/devmesh/realtime-gateway/internal/store"
)

// Gateway orchestrates the realtime-gateway server components: the store,
// the session registry, the messaging and notification services, and the
// HTTP server carrying both the JSON API and the socket endpoint.
type Gateway struct {
	config     *config.Config
	store      store.Store
	registry   *session.InMemoryRegistry
	dispatcher *dispatch.Dispatcher
	messaging  *messaging.Service
	notify     *notify.Service
	verifier   *auth.JWTVerifier
	dedupe     *hookdedupe.Suppressor
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("GATEWAY_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := session.NewInMemoryRegistry(logger)
	dispatcher := dispatch.New(registry, logger)

	g := &Gateway{
		config:     cfg,
		store:      s,
		registry:   registry,
		dispatcher: dispatcher,
		messaging:  messaging.New(s, dispatcher, logger),
		notify:     notify.New(s, dispatcher, logger),
		verifier:   auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)),
		dedupe:     hookdedupe.New(cfg.Hooks.DedupeWindow),
		logger:     logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	g.registerRoutes(mux)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// registerRoutes wires the API surface onto the mux. Everything except
// login, hooks, and health sits behind the JWT middleware.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	authMw := auth.HTTPAuthMiddleware(g.store, g.verifier, g.config.AdminHandleSet())
	adminMw := auth.RequireAdminHTTP()

	authed := func(h http.HandlerFunc) http.Handler { return authMw(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMw(adminMw(h)) }

	mux.HandleFunc("POST /api/login", g.handleLogin)

	mux.Handle("POST /api/messages", authed(g.handleSendMessage))
	mux.Handle("GET /api/conversations", authed(g.handleListConversations))
	mux.Handle("GET /api/conversations/{partnerID}/messages", authed(g.handleListMessages))
	mux.Handle("POST /api/conversations/{partnerID}/read", authed(g.handleMarkRead))

	mux.Handle("GET /api/notifications", authed(g.handleListNotifications))
	mux.Handle("GET /api/notifications/unread-count", authed(g.handleUnreadCount))
	mux.Handle("POST /api/notifications/read", authed(g.handleMarkNotificationsRead))

	// Service-to-service hooks from the profile subsystem, guarded by a
	// shared secret rather than a user token.
	mux.HandleFunc("POST /api/hooks/like", g.handleLikeHook)
	mux.HandleFunc("POST /api/hooks/comment", g.handleCommentHook)
	mux.HandleFunc("POST /api/hooks/comment-deleted", g.handleCommentDeletedHook)

	mux.Handle("POST /api/admin/identities", admin(g.handleCreateIdentity))
	mux.Handle("GET /api/admin/identities", admin(g.handleListIdentities))
	mux.Handle("POST /api/admin/tokens", admin(g.handleMintToken))
	mux.Handle("POST /api/admin/broadcast", admin(g.handleBroadcast))

	// The socket endpoint authenticates inside the handler: browser
	// WebSocket clients cannot set an Authorization header, so the token
	// may arrive as ?token= instead.
	mux.HandleFunc("GET /api/ws", g.handleSocket)
}

// Start runs the HTTP server until the context is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Run starts the gateway and blocks until the context is cancelled, then
// shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.Start(ctx); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops the gateway and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	g.dedupe.Close()
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports readiness plus how many identities are connected.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d connected)", g.registry.Online())
}
