// cmd/api/main.go
// Application entry point

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beegin-app/beegin-backend/internal/auth"
	"github.com/beegin-app/beegin-backend/internal/comments"
	"github.com/beegin-app/beegin-backend/internal/common/database"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
	"github.com/beegin-app/beegin-backend/internal/config"
	"github.com/beegin-app/beegin-backend/internal/notification"
	"github.com/beegin-app/beegin-backend/internal/posts"
	"github.com/beegin-app/beegin-backend/internal/profile"
	"github.com/beegin-app/beegin-backend/internal/search"
)

func main() {
	// Load .env if present; real deployments set the environment
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("🚀 Starting Beegin API server...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("✅ Configuration loaded (environment: %s)", cfg.Environment)

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL")

	if err := runMigrations(db); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}
	log.Println("✅ Database migrations applied")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, continuing without it: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis")
		}
	}

	// Auth
	authService := auth.NewService(cfg.JWTSecret, redisClient)
	authMiddleware := auth.NewMiddleware(authService)

	// Profiles
	profileRepo := profile.NewRepository(db)
	profileService := profile.NewService(profileRepo)
	profileHandler := profile.NewHandler(profileService)

	// Notifications
	var hub *notification.Hub
	subscriberCtx, stopSubscriber := context.WithCancel(context.Background())
	defer stopSubscriber()
	if cfg.EnableLiveDelivery {
		hub = notification.NewHub()
		if redisClient != nil {
			go hub.RunRedisSubscriber(subscriberCtx, redisClient)
		}
	}
	var publisher notification.Publisher
	if redisClient != nil {
		publisher = notification.NewRedisPublisher(redisClient)
	}
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, profileRepo, hub, publisher)
	notificationHandler := notification.NewHandler(notificationService, hub)

	// Uploads
	var uploader posts.UploadService
	if cfg.UseS3 {
		uploader, err = posts.NewS3UploadService(cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			log.Fatalf("❌ Failed to initialize S3 uploads: %v", err)
		}
		log.Println("✅ S3 uploads enabled")
	} else {
		uploader, err = posts.NewLocalUploadService(cfg.LocalUploadDir, cfg.BaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to initialize local uploads: %v", err)
		}
		log.Printf("✅ Local uploads enabled (%s)", cfg.LocalUploadDir)
	}

	// Posts
	postRepo := posts.NewRepository(db)
	postService := posts.NewService(postRepo, notificationService, uploader,
		cfg.MaxPostLength, cfg.MaxImagesPerPost, cfg.NotificationTimeout)
	postHandler := posts.NewHandler(postService)

	// Comments
	commentRepo := comments.NewRepository(db)
	commentService := comments.NewService(commentRepo, postRepo, notificationService,
		cfg.MaxCommentLength, cfg.NotificationTimeout)
	commentHandler := comments.NewHandler(commentService)

	// Search
	searchHandler := search.NewHandler(postService, profileService)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/health", healthHandler).Methods("GET")
	if cfg.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
	if !cfg.UseS3 {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.LocalUploadDir))))
	}

	posts.RegisterRoutes(router, postHandler, authMiddleware)
	comments.RegisterRoutes(router, commentHandler, authMiddleware)
	profile.RegisterRoutes(router, profileHandler, authMiddleware)
	notification.RegisterRoutes(router, notificationHandler, authMiddleware)
	search.RegisterRoutes(router, searchHandler, authMiddleware)
	log.Println("✅ Routes registered")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	stopSubscriber()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Forced shutdown: %v", err)
	}
	log.Println("👋 Server stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
