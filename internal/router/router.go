package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/placemark-app/backend/internal/handlers"
	"github.com/placemark-app/backend/internal/middleware"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/notify"
	"github.com/placemark-app/backend/internal/repositories"
	"github.com/placemark-app/backend/pkg/firebase"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, firebaseApp *firebase.App) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.UserPrefs{},
		&models.UserRelation{},
		&models.FCMToken{},
		&models.Place{},
		&models.PlaceData{},
		&models.PlaceSave{},
		&models.ImageUpload{},
		&models.Post{},
		&models.PostLike{},
		&models.PostSave{},
		&models.PostReport{},
		&models.Comment{},
		&models.CommentLike{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	if err := setupSchemaExtras(pgdb); err != nil {
		log.Fatalf("Failed to finish schema setup: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	relationRepo := repositories.NewPostgresRelationRepository(pgdb)
	placeRepo := repositories.NewPostgresPlaceRepository(pgdb)
	postRepo := repositories.NewPostgresPostRepository(pgdb)
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	feedRepo := repositories.NewPostgresFeedRepository(pgdb)
	notificationFeedRepo := repositories.NewPostgresNotificationFeedRepository(pgdb)
	imageRepo := repositories.NewPostgresImageRepository(pgdb)
	tokenRepo := repositories.NewPostgresTokenRepository(pgdb)

	notifier := notify.NewNotifier(firebaseApp.MessagingClient, tokenRepo, userRepo)

	// --- Onboarding routes (verified Firebase token, no account yet) ---
	userHandler := handlers.NewUserHandler(userRepo, relationRepo, postRepo, firebaseApp)
	onboarding := e.Group("/api/v1")
	onboarding.Use(middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient))
	userHandler.RegisterOnboardingRoutes(onboarding)
	log.Println("Onboarding routes configured.")

	// --- Protected routes (require an existing account) ---
	api := e.Group("/api/v1")
	api.Use(middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient))
	api.Use(middleware.CurrentUserMiddleware(userRepo))

	userHandler.RegisterUserRoutes(api)
	log.Println("User routes configured.")

	followHandler := handlers.NewFollowHandler(relationRepo, userRepo, notifier)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	postHandler := handlers.NewPostHandler(postRepo, placeRepo, relationRepo, userRepo, firebaseApp)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	likeHandler := handlers.NewLikeHandler(postRepo, relationRepo, notifier)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	savedPostHandler := handlers.NewSavedPostHandler(postRepo, relationRepo, userRepo, notifier)
	savedPostHandler.RegisterSavedPostRoutes(api)
	log.Println("Saved post routes configured.")

	savedPlaceHandler := handlers.NewSavedPlaceHandler(placeRepo)
	savedPlaceHandler.RegisterSavedPlaceRoutes(api)
	log.Println("Saved place routes configured.")

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, relationRepo, userRepo, notifier)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	feedHandler := handlers.NewFeedHandler(feedRepo, postRepo, userRepo)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	mapHandler := handlers.NewMapHandler(feedRepo, postRepo, userRepo)
	mapHandler.RegisterMapRoutes(api)
	log.Println("Map routes configured.")

	notificationHandler := handlers.NewNotificationHandler(notificationFeedRepo, tokenRepo, userRepo, postRepo, commentRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	imageHandler := handlers.NewImageHandler(imageRepo, firebaseApp)
	imageHandler.RegisterImageRoutes(api)
	log.Println("Image routes configured.")

	adminGroup := api.Group("")
	adminGroup.Use(middleware.AdminOnlyMiddleware())
	adminHandler := handlers.NewAdminHandler(userRepo)
	adminHandler.RegisterAdminRoutes(adminGroup)
	log.Println("Admin routes configured.")

	log.Println("All routes configured.")
}

// setupSchemaExtras applies the schema pieces AutoMigrate cannot express:
// the PostGIS extension for proximity queries and the shared sequence that
// keeps notification source ids comparable across their four tables.
func setupSchemaExtras(pgdb *gorm.DB) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE SEQUENCE IF NOT EXISTS notification_source_id_seq`,
		`ALTER TABLE user_relations ALTER COLUMN id SET DEFAULT nextval('notification_source_id_seq')`,
		`ALTER TABLE post_likes ALTER COLUMN id SET DEFAULT nextval('notification_source_id_seq')`,
		`ALTER TABLE post_saves ALTER COLUMN id SET DEFAULT nextval('notification_source_id_seq')`,
		`ALTER TABLE comments ALTER COLUMN id SET DEFAULT nextval('notification_source_id_seq')`,
	}
	for _, statement := range statements {
		if err := pgdb.Exec(statement).Error; err != nil {
			return err
		}
	}
	return nil
}
