package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TitanMusic/cache"
	"TitanMusic/config"
	"TitanMusic/core/auth"
	"TitanMusic/core/catalog"
	"TitanMusic/db"
	"TitanMusic/events"
	"TitanMusic/logger"
	"TitanMusic/repository"
	"TitanMusic/server/feed"
	"TitanMusic/storage"

	"github.com/gorilla/mux"
)

// Router bundles what NewRouter mounts.
type Router struct {
	API     *APIHandler
	Feed    http.Handler
	Health  http.Handler
	Limiter *RateLimiter
	Static  http.Handler
	Origins []string
}

// NewRouter builds the route table.
func NewRouter(rt Router) http.Handler {
	router := mux.NewRouter()
	router.Use(RecoverMiddleware, AccessLogMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(CORSMiddleware(rt.Origins))
	if rt.Limiter != nil {
		api.Use(rt.Limiter.Middleware)
	}

	h := rt.API
	api.HandleFunc("/auth/register", h.RegisterHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/login", h.LoginHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/me", h.AuthMiddleware(h.MeHandler)).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/music/tracks", h.ListTracksHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/music/my-tracks", h.AuthMiddleware(h.MyTracksHandler)).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/music/upload", h.AuthMiddleware(h.UploadTrackHandler)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/music/tracks/{id}", h.GetTrackHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/music/tracks/{id}", h.AuthMiddleware(h.UpdateTrackHandler)).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/music/tracks/{id}", h.AuthMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete, http.MethodOptions)

	if rt.Health != nil {
		api.Handle("/health", rt.Health).Methods(http.MethodGet)
	}
	api.PathPrefix("/").HandlerFunc(NotFoundHandler)

	if rt.Feed != nil {
		router.Handle("/ws/feed", rt.Feed).Methods(http.MethodGet)
	}
	if rt.Static != nil {
		router.PathPrefix("/").Handler(rt.Static)
	} else {
		router.NotFoundHandler = http.HandlerFunc(NotFoundHandler)
	}
	return router
}

// Start wires every dependency described by cfg, serves until SIGINT or
// SIGTERM and then shuts down gracefully.
func Start(cfg *config.Config) error {
	proxies, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	objects, err := storage.NewObjectStore(cfg)
	if err != nil {
		return err
	}
	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := objects.EnsureBucket(initCtx); err != nil {
		// uploads fail with 503 until MinIO is reachable
		logger.Warn("object storage not ready", logger.ErrorField(err))
	}

	checks := map[string]HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"storage": objects.Ping,
	}

	hub := feed.NewHub(cfg.CORSOrigins)
	go hub.Run()
	defer hub.Stop()

	opts := []catalog.Option{catalog.WithPublishers(hub)}

	if cfg.RedisEnabled {
		client, err := db.ConnectRedis(cfg)
		if err != nil {
			logger.Warn("redis unavailable, feed cache disabled", logger.ErrorField(err))
		} else {
			defer client.Close()
			opts = append(opts, catalog.WithFeedCache(cache.NewFeedCache(client, cfg.FeedCacheTTL)))
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		opts = append(opts, catalog.WithPublishers(producer))
		logger.Info("publishing track events to kafka",
			logger.Strings("brokers", cfg.KafkaBrokers), logger.String("topic", cfg.KafkaTopic))
	}

	svc := catalog.NewService(repository.NewGormTrackRepository(gdb), objects, opts...)
	api := NewAPIHandler(svc, repository.NewGormUserRepository(gdb),
		auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL), cfg)

	rt := Router{
		API:     api,
		Feed:    hub,
		Health:  NewHealthHandler(checks),
		Static:  NewStaticHandler(cfg.WebAppDir),
		Origins: cfg.CORSOrigins,
	}
	if cfg.RateLimitRequests > 0 {
		rt.Limiter = NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		rt.Limiter.Proxies = proxies
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      NewRouter(rt),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, srv, cfg.ShutdownTimeout)
}

// serve runs srv until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
