package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/router"
	"github.com/foodgram/backend/internal/server"
	"github.com/foodgram/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = database.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	} else {
		log.Printf("Redis not configured, logout denylist and rate limiting disabled")
	}

	images, err := buildImageStore(cfg)
	if err != nil {
		log.Fatalf("Failed to configure image storage: %v", err)
	}

	authService := service.NewAuthService(db, cfg.JWTSecret, redisClient)
	userService := service.NewUserService(db)
	catalogService := service.NewCatalogService(db)
	recipeService := service.NewRecipeService(db, images)
	shoppingService := service.NewShoppingListService(db)

	opts := router.Options{
		Auth:      api.NewAuthHandler(authService),
		Users:     api.NewUserHandler(userService, authService),
		Catalog:   api.NewCatalogHandler(catalogService),
		Recipes:   api.NewRecipeHandler(recipeService, userService, shoppingService),
		Validator: authService,
	}
	if redisClient != nil {
		opts.RecipeCreateLimiter = middleware.NewRecipeCreationRateLimiter(redisClient)
	}
	if cfg.S3Bucket == "" {
		opts.MediaDir = cfg.MediaDir
	}

	srv := server.New(cfg.ServerHost+":"+cfg.ServerPort, router.Setup(opts))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func buildImageStore(cfg *config.Config) (service.ImageStore, error) {
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		return service.NewS3ImageStore(s3.NewFromConfig(awsCfg), cfg.S3Bucket), nil
	}
	return service.NewLocalImageStore(cfg.MediaDir, cfg.MediaURL), nil
}
