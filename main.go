package main

import (
	"context"
	"log"
	"strings"

	api "inboxhub-backend/cmd/api"
	authUsecase "inboxhub-backend/internal/auth/usecase"
	catdomain "inboxhub-backend/internal/categorization/domain"
	catRepo "inboxhub-backend/internal/categorization/repository"
	catUsecase "inboxhub-backend/internal/categorization/usecase"
	conndomain "inboxhub-backend/internal/connection/domain"
	connRepo "inboxhub-backend/internal/connection/repository"
	connUsecase "inboxhub-backend/internal/connection/usecase"
	emaildomain "inboxhub-backend/internal/email/domain"
	emailRepo "inboxhub-backend/internal/email/repository"
	"inboxhub-backend/internal/email/scheduler"
	emailUsecase "inboxhub-backend/internal/email/usecase"
	"inboxhub-backend/internal/notification"
	"inboxhub-backend/pkg/config"
	"inboxhub-backend/pkg/crypto"
	"inboxhub-backend/pkg/database"
	"inboxhub-backend/pkg/gmail"
	"inboxhub-backend/pkg/llm"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&conndomain.Connection{},
		&conndomain.OAuthToken{},
		&emaildomain.Message{},
		&emaildomain.Thread{},
		&catdomain.PromptConfig{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Token sealing for OAuth credentials at rest
	box, err := crypto.NewBox(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize token encryption:", err)
	}

	// Initialize repositories (dependency injection)
	connectionRepo := connRepo.NewConnectionRepository(db)
	tokenRepo := connRepo.NewOAuthTokenRepository(db, box)
	messageRepo := emailRepo.NewMessageRepository(db)
	threadRepo := emailRepo.NewThreadRepository(db)
	promptRepo := catRepo.NewPromptConfigRepository(db)

	// Gmail Watch wants the fully qualified Pub/Sub topic name
	topicName := cfg.GooglePubSubTopic
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}
	watchTopic := ""
	if cfg.GoogleProjectID != "" && topicName != "" {
		watchTopic = "projects/" + cfg.GoogleProjectID + "/topics/" + topicName
	}

	googleOAuth := gmail.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, watchTopic)
	flows := map[conndomain.Provider]connUsecase.OAuthFlow{
		conndomain.ProviderGmail: googleOAuth,
	}
	providers := map[conndomain.Provider]emaildomain.MailProvider{
		conndomain.ProviderGmail: gmail.NewProvider(),
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(cfg)
	connUsecaseInstance := connUsecase.NewConnectionUsecase(connectionRepo, tokenRepo, flows)
	connUsecaseInstance.SetWatcher(googleOAuth)
	tokenManager := connUsecase.NewTokenManager(tokenRepo, connectionRepo, googleOAuth)
	emailUsecaseInstance := emailUsecase.NewEmailUsecase(messageRepo, threadRepo, connectionRepo, tokenManager, providers, cfg.SyncMaxResults)

	llmClient := llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL)
	catUsecaseInstance := catUsecase.NewCategorizationUsecase(messageRepo, promptRepo, llmClient, cfg.CategorizeBatch, cfg.CategorizeDelay)

	// Periodic re-sync and categorization sweep
	syncScheduler := scheduler.NewSyncScheduler(connectionRepo, emailUsecaseInstance, catUsecaseInstance, cfg.SyncInterval)
	syncScheduler.Start()

	// Gmail push notifications via Pub/Sub (optional)
	if cfg.GoogleProjectID != "" && topicName != "" {
		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, connectionRepo, emailUsecaseInstance)
		if err != nil {
			log.Printf("Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Println("GOOGLE_PROJECT_ID not configured, push notifications disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, connUsecaseInstance, emailUsecaseInstance, catUsecaseInstance)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
