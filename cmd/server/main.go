package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qna_catalog/internal/api"
	"qna_catalog/internal/app/service"
	"qna_catalog/internal/common/security"
	"qna_catalog/internal/domain/repository"
	"qna_catalog/internal/platform/cache"
	"qna_catalog/internal/platform/config"
	"qna_catalog/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)
	log.Println("JWT initialized.")

	// 3. Initialize Database
	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected.")

	// 4. Initialize Redis cache
	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
	defer rdb.Close()
	questionCache := cache.NewQuestionCache(rdb, cfg.QuestionCacheTTL)
	log.Println("Redis connected.")

	// 5. Initialize Repositories
	questionRepo := repository.NewPgQuestionRepository(db)
	subQuestionRepo := repository.NewPgSubQuestionRepository(db)
	categoryRepo := repository.NewPgCategoryRepository(db)
	userRepo := repository.NewPgUserRepository(db)
	roleRepo := repository.NewPgRoleRepository(db)

	// 6. Initialize Services
	txr := database.NewTxRunner(db)
	fetcher := service.NewSubtreeFetcher(subQuestionRepo)
	questionService := service.NewQuestionService(questionRepo, subQuestionRepo, categoryRepo, txr, fetcher, questionCache)
	categoryService := service.NewCategoryService(categoryRepo, txr)
	userService := service.NewUserService(userRepo, roleRepo, txr)
	authService := service.NewAuthService(userRepo, roleRepo, txr)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(authService, questionService, categoryService, userService)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
