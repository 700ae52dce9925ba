package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/router"
	"github.com/placemark-app/backend/pkg/config"
	"github.com/placemark-app/backend/pkg/firebase"
	"github.com/placemark-app/backend/pkg/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.StorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Validator
	e.Validator = validators.NewValidator()

	// Setup routes and dependencies
	router.SetupRoutes(e, db.Postgres, firebaseApp)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
