package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/folioserve/folio-live/internal/cache"
	"github.com/folioserve/folio-live/internal/config"
	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/internal/handler"
	"github.com/folioserve/folio-live/internal/hub"
	"github.com/folioserve/folio-live/internal/realtime"
	"github.com/folioserve/folio-live/internal/repository"
	"github.com/folioserve/folio-live/internal/service"
	"github.com/folioserve/folio-live/pkg/database"
	"github.com/folioserve/folio-live/pkg/jwt"
	pkglog "github.com/folioserve/folio-live/pkg/log"
	"github.com/folioserve/folio-live/pkg/middleware"
	"github.com/folioserve/folio-live/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "folio-live",
	})
	logger := pkglog.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db,
		&domain.Project{},
		&domain.Skill{},
		&domain.Certificate{},
		&domain.ContactMessage{},
		&domain.Notification{},
		&domain.About{},
		&domain.User{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	var collectionCache cache.CollectionCache
	if cfg.Cache.Enabled && cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisCollectionCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		collectionCache = redisCache
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis cache connected")
	}

	wsHub := hub.New()
	notifier := realtime.NewNotifier(wsHub)

	projects := service.NewContent[domain.Project](
		repository.NewGormStore[domain.Project](db, "sort_order ASC, created_at DESC"),
		notifier, realtime.Projects,
		withOptionalCache[domain.Project](collectionCache, cfg.Cache.TTL),
		service.WithAdminToasts[domain.Project](func(p domain.Project) string { return p.Title }),
	)
	skills := service.NewContent[domain.Skill](
		repository.NewGormStore[domain.Skill](db, "sort_order ASC, created_at DESC"),
		notifier, realtime.Skills,
		withOptionalCache[domain.Skill](collectionCache, cfg.Cache.TTL),
		service.WithAdminToasts[domain.Skill](func(s domain.Skill) string { return s.Name }),
	)
	certificates := service.NewContent[domain.Certificate](
		repository.NewGormStore[domain.Certificate](db, "created_at DESC"),
		notifier, realtime.Certificates,
		withOptionalCache[domain.Certificate](collectionCache, cfg.Cache.TTL),
	)
	contact := service.NewContent[domain.ContactMessage](
		repository.NewGormStore[domain.ContactMessage](db, "created_at DESC"),
		notifier, realtime.Contact,
		service.WithAdminToasts[domain.ContactMessage](func(m domain.ContactMessage) string { return m.Name }),
	)
	notifications := service.NewContent[domain.Notification](
		repository.NewGormStore[domain.Notification](db, "created_at DESC"),
		notifier, realtime.Notifications,
	)
	about := service.NewAboutService(repository.NewGormAboutRepository(db), notifier)

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}
	auth := service.NewAuthService(repository.NewGormUserRepository(db), tokens)

	if err := auth.SeedAdmin(context.Background(), cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminUsername); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin account")
	}

	uploads, err := newStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize upload storage")
	}

	wsHandler := handler.NewWSHandler(wsHub, notifier, cfg.WebSocket)
	httpHandler := handler.NewHandler(
		projects, skills, certificates, contact, notifications,
		about, auth, uploads, middleware.NewAuthMiddleware(tokens), wsHandler,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(*logger))
	r.Use(handler.CORS(cfg.Server.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if local, ok := uploads.(*storage.LocalStorage); ok {
		r.Static("/uploads", local.BasePath())
	}

	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("folio-live listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("stopped")
}

// withOptionalCache enables the collection cache only when redis is
// configured.
func withOptionalCache[T repository.Entity[T]](c cache.CollectionCache, ttl time.Duration) service.ContentOption[T] {
	if c == nil {
		return func(*service.Content[T]) {}
	}
	return service.WithCache[T](c, ttl)
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return storage.NewS3Storage(context.Background(), cfg.Storage.S3)
	default:
		return storage.NewLocalStorage(cfg.Storage.Local)
	}
}
