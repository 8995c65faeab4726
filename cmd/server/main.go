package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/LickLitty/ungservice2025/internal/conv"
	"github.com/LickLitty/ungservice2025/internal/db"
	"github.com/LickLitty/ungservice2025/internal/job"
	myMiddleware "github.com/LickLitty/ungservice2025/internal/middleware"
	"github.com/LickLitty/ungservice2025/internal/store"
	"github.com/LickLitty/ungservice2025/internal/thread"
	"github.com/LickLitty/ungservice2025/internal/user"
)

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", ":8080", "http service address")
	flag.Parse()

	// Get Secrets from Environment (Docker)
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("❌ DB_DSN is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// 2. Connect to Database (Platform Layer)
	database, err := db.NewDatabase(dsn)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database Schema Initialized")

	// 3. Connect to Redis (Platform Layer)
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// 4. Data Access Port (Postgres rows + Redis pub/sub pushes)
	dataStore := store.New(database.Conn, redisClient)

	// 5. Identity
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, jwtSecret)
	userHandler := user.NewHandler(userService)

	// 6. Conversations: live sync sessions + thread discovery
	convHandler := conv.NewHandler(dataStore)
	threadHandler := thread.NewHandler(thread.NewService(dataStore))

	// 7. Marketplace glue: jobs, interest, notifications
	jobRepo := job.NewRepository(database.Conn)
	jobService := job.NewService(jobRepo, dataStore)
	jobHandler := job.NewHandler(jobService)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	// 8. Define Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public Routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Protected Routes (Require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		// WebSocket (live conversation view + optimistic sends)
		r.Get("/ws", convHandler.ServeWs)

		// Inbox & one-shot history
		r.Get("/api/threads", threadHandler.ListThreads)
		r.Get("/api/messages", convHandler.GetHistory)
		r.Post("/api/messages", convHandler.PostMessage)

		// Marketplace
		r.Post("/api/jobs", jobHandler.CreateJob)
		r.Get("/api/jobs", jobHandler.ListJobs)
		r.Get("/api/jobs/{id}", jobHandler.GetJob)
		r.Get("/api/jobs/{id}/applicants", jobHandler.ListApplicants)
		r.Post("/api/jobs/{id}/interest", jobHandler.Interest)
		r.Put("/api/jobs/{id}/applicants/{applicant}", jobHandler.UpdateApplicationStatus)
		r.Get("/api/notifications", jobHandler.ListNotifications)
		r.Post("/api/notifications/{id}/read", jobHandler.MarkNotificationRead)

		// Profile
		r.Get("/api/profile", userHandler.GetProfile)
		r.Put("/api/profile", userHandler.UpdateProfile)
	})

	log.Printf("🚀 Server starting on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal(err)
	}
}
