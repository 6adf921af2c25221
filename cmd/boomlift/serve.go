package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/boomlift-maintenance/internal/auth"
	"github.com/ukydev/boomlift-maintenance/internal/cache"
	"github.com/ukydev/boomlift-maintenance/internal/db"
	"github.com/ukydev/boomlift-maintenance/internal/handlers"
	"github.com/ukydev/boomlift-maintenance/internal/middleware"
	"github.com/ukydev/boomlift-maintenance/internal/records"
	"github.com/ukydev/boomlift-maintenance/internal/validation"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
	cmd.Flags().String("port", "", "listen port (default 8080)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	if err := c.cfg.RequireJWTSecret(); err != nil {
		return err
	}
	authService, err := auth.NewService(c.cfg.JWTSecret, c.cfg.JWTExpiry)
	if err != nil {
		return err
	}

	a, err := c.connect(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	history, err := a.history(ctx)
	if err != nil {
		return err
	}
	store := records.NewStore(history...)
	fwd, err := a.forwarder()
	if err != nil {
		return err
	}
	submitter := validation.NewSubmitter(store, fwd)

	checks := []handlers.HealthCheck{{
		Name:  "mongo",
		Check: func(ctx context.Context) error { return a.mongo.Ping(ctx, nil) },
	}}
	var summaryCache *cache.SummaryCache
	if c.cfg.RedisAddr != "" {
		rc := cache.NewRedisClient(c.cfg.RedisAddr, c.cfg.RedisPassword, c.cfg.RedisDB)
		a.closers = append(a.closers, func() { _ = rc.Close() })
		summaryCache = cache.NewSummaryCache(rc, cache.DefaultPrefix, c.cfg.SummaryCacheTTL)
		if err := summaryCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("Redis unavailable, summaries will be rebuilt per request")
		}
		checks = append(checks, handlers.HealthCheck{Name: "redis", Check: summaryCache.Ping})
	}

	users := &db.MongoUserCollection{Collection: a.db.Collection(usersCollection)}
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:     handlers.NewAuthHandler(authService, users),
		Records:  handlers.NewRecordHandler(store, submitter, warnings.NewIn(a.loc)),
		Import:   handlers.NewImportHandler(submitter, a.loc),
		Summary:  handlers.NewSummaryHandler(store, summaryCache, a.loc),
		Health:   handlers.NewHealthHandler(store, checks...),
		AuthMW:   middleware.NewAuthMiddleware(authService),
		RateMW:   middleware.NewRateLimitMiddleware(),
		MaxPosts: c.cfg.RateLimit,
		Window:   c.cfg.RateWindow,
	})

	srv := &http.Server{
		Addr:              ":" + c.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithFields(c.cfg.Redacted()).WithField("records", store.Len()).Info("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
