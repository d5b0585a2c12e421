package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/dkriz/todo-api/docs" // Swagger docs (generated)
	"github.com/dkriz/todo-api/internal/auth"
	"github.com/dkriz/todo-api/internal/chat"
	"github.com/dkriz/todo-api/internal/config"
	"github.com/dkriz/todo-api/internal/database"
	httpServer "github.com/dkriz/todo-api/internal/http"
	"github.com/dkriz/todo-api/internal/logging"
	"github.com/dkriz/todo-api/internal/ratelimit"
	"github.com/dkriz/todo-api/internal/task"
	"github.com/dkriz/todo-api/internal/user"
)

// @title           Todo API
// @version         1.0
// @description     Multi-user todo-list API with JWT session authentication, task CRUD and a keyword-matching chat endpoint.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"token_backend", cfg.Auth.TokenBackend,
	)

	// Repositories: Postgres in production, in-memory for local development
	// and tests. Rate limiting is Redis-backed and only available with the
	// Postgres backend.
	var (
		userRepo    user.Repository
		taskRepo    task.Repository
		rateLimiter ratelimit.Limiter = ratelimit.NewNoopLimiter()
	)

	if cfg.Storage.UsesPostgres() {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		if err := database.RunMigrations(context.Background(), db.DB); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		userRepo = user.NewBunRepository(db)
		taskRepo = task.NewBunRepository(db)

		redisClient, err := initRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()

		rateLimiter = ratelimit.NewLimiter(redisClient)
	} else {
		logger.Warn("using in-memory storage; data is lost on restart")
		userRepo = user.NewMemoryRepository()
		taskRepo = task.NewMemoryRepository()
	}

	tokenService, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	authService := auth.NewService(userRepo, tokenService, logger, cfg.Auth.TokenDuration)
	taskService := task.NewService(taskRepo, logger)

	authHandler := auth.NewHandler(
		authService,
		rateLimiter,
		logger,
		!cfg.Server.IsDevelopment(), // isProduction
		cfg.Auth.TokenDuration,
	)
	authMiddleware := auth.NewMiddleware(tokenService, userRepo)
	taskHandler := task.NewHandler(taskService, logger)
	chatHandler := chat.NewHandler(taskService, logger)

	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, taskHandler, chatHandler, logger)

	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// newTokenService selects the token backend from configuration.
func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenBackend {
	case config.TokenBackendPaseto:
		return auth.NewPasetoService(cfg.TokenSecret)
	default:
		return auth.NewJWTService(cfg.TokenSecret)
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
