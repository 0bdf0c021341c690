package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/prismhq/prism/internal/app"
	"github.com/prismhq/prism/internal/authn"
	"github.com/prismhq/prism/internal/catalog/categories"
	"github.com/prismhq/prism/internal/catalog/products"
	"github.com/prismhq/prism/internal/embeddings"
	"github.com/prismhq/prism/internal/observability"
	"github.com/prismhq/prism/internal/platform/cache"
	"github.com/prismhq/prism/internal/platform/db"
	"github.com/prismhq/prism/internal/projects"
	"github.com/prismhq/prism/internal/rbac"
	"github.com/prismhq/prism/internal/roles"
	"github.com/prismhq/prism/internal/uploads"
	"github.com/prismhq/prism/internal/users"
	"github.com/prismhq/prism/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, authorization cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	rbacStore := rbac.NewPGStore(pool)
	tripleCache := rbac.NewTripleCache(redisClient, cfg.AuthzCacheTTL)
	resolver := rbac.NewResolver(rbacStore, tripleCache)
	rbacMiddleware := rbac.Middleware{Resolver: resolver, Logger: logger, Metrics: metrics}

	verifier := authn.NewTokenVerifier([]byte(cfg.AuthTokenSecret), cfg.AuthTokenIssuer, cfg.AuthTokenAudience)
	authnMiddleware := authn.Middleware{Verifier: verifier, Resolver: rbacStore, Logger: logger}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, tripleCache, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo)
	productsHandler := products.NewHandler(logger, productsService, rbacMiddleware)

	categoriesRepo := categories.NewRepository(pool)
	categoriesService := categories.NewService(categoriesRepo)
	categoriesHandler := categories.NewHandler(logger, categoriesService, rbacMiddleware)

	projectsRepo := projects.NewRepository(pool)
	projectsService := projects.NewService(projectsRepo)
	projectsHandler := projects.NewHandler(logger, projectsService, rbacMiddleware)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	relayClient := embeddings.NewRelayClient(cfg.EmbedderURL, cfg.EmbedderAPIKey, cfg.EmbedderCallback)
	embeddingsRepo := embeddings.NewRepository(pool)
	embeddingsService := embeddings.NewService(embeddingsRepo, relayClient, jobClient, logger)
	embeddingsHandler := embeddings.NewHandler(logger, embeddingsService, rbacMiddleware)
	webhookHandler := embeddings.NewWebhookHandler(cfg.WebhookSecret, embeddingsService, logger)

	blobStore, err := uploads.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}
	uploadsRepo := uploads.NewRepository(pool)
	uploadsService := uploads.NewService(uploadsRepo, blobStore, logger)
	uploadsHandler := uploads.NewHandler(logger, uploadsService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authn:             authnMiddleware,
		UsersHandler:      usersHandler,
		RolesHandler:      rolesHandler,
		ProductsHandler:   productsHandler,
		CategoriesHandler: categoriesHandler,
		ProjectsHandler:   projectsHandler,
		EmbeddingsHandler: embeddingsHandler,
		UploadsHandler:    uploadsHandler,
		WebhookHandler:    webhookHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
