package main

import (
	"context"
	"log"
	"os"

	"quizlive/config"
	"quizlive/handlers"
	"quizlive/middleware"
	"quizlive/models"
	"quizlive/routes"
	"quizlive/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("Failed to load .env: %v", err)
		}
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	err = db.AutoMigrate(
		&models.Game{},
		&models.Question{},
		&models.Answer{},
		&models.GameSession{},
		&models.Player{},
		&models.SessionAnswer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	redisClient := config.InitRedis(cfg)

	store := services.NewRedisStore(db, redisClient)
	pins := services.NewPinRegistry()

	// Rebind PINs of sessions that were still live before a restart.
	if active, err := store.ActiveSessions(context.Background()); err != nil {
		log.Printf("Failed to restore active session pins: %v", err)
	} else {
		for _, session := range active {
			if session.Pin == "" {
				continue
			}
			if err := pins.Bind(session.Pin, session.ID); err != nil {
				log.Printf("Failed to rebind pin %s: %v", session.Pin, err)
			}
		}
	}

	sessionService := services.NewSessionService(
		store,
		services.NewGormGameSource(db),
		pins,
		services.NewScoringEngine(),
	)

	hub := services.NewHub(sessionService)
	go hub.Run()

	sessionHandler := handlers.NewSessionHandler(sessionService, hub)

	router := gin.Default()
	router.Use(middleware.CORS())

	routes.SetupRoutes(router, sessionHandler, hub, sessionService, cfg.JWTSecret)

	log.Printf("Server starting on %s", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
