package main

import (
	"context"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"supportchat/internal/adapter/api"
	"supportchat/internal/adapter/api/handler"
	"supportchat/internal/adapter/api/router"
	"supportchat/internal/adapter/repository"
	domainrepo "supportchat/internal/domain/repository"
	"supportchat/internal/infrastructure/websocket"
	"supportchat/internal/realtime"
	"supportchat/internal/usecase"
	"supportchat/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var conversationRepo domainrepo.ConversationRepository
	var profileRepo domainrepo.ProfileRepository

	switch cfg.StoreDriver {
	case "firestore":
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		conversationRepo = repository.NewFirestoreConversationRepository(firestoreClient)
		profileRepo = repository.NewFirestoreProfileRepository(firestoreClient)
	case "memory":
		conversationRepo = repository.NewMemoryConversationRepository()
		profileRepo = repository.NewMemoryProfileRepository()
	default:
		log.Fatalf("Unknown STORE_DRIVER: %s", cfg.StoreDriver)
	}

	var stateRepo domainrepo.StateRepository
	switch cfg.StateDriver {
	case "redis":
		stateRepo, err = repository.NewRedisStateRepository(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	case "memory":
		stateRepo = repository.NewMemoryStateRepository()
	default:
		log.Fatalf("Unknown STATE_DRIVER: %s", cfg.StateDriver)
	}

	store := realtime.NewConversationStore(conversationRepo)
	if err := store.Load(ctx); err != nil {
		log.Fatalf("Failed to load conversation store: %v", err)
	}

	presence := realtime.NewPresenceTracker(stateRepo, cfg.PresenceTimeout, cfg.PresenceSweep)
	presence.Start(ctx)

	typing := realtime.NewTypingSignal(stateRepo)

	adminChannel := realtime.NewAdminChannel(stateRepo, cfg.PresenceTimeout, cfg.PresenceSweep)
	adminChannel.Start(ctx)

	chatUseCase := usecase.NewChatUseCase(store, presence, typing, adminChannel, cfg.GreetingText)
	inboxUseCase := usecase.NewInboxUseCase(store, presence, typing, adminChannel, profileRepo)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	chatHandler := handler.NewChatHandler(chatUseCase)
	inboxHandler := handler.NewInboxHandler(inboxUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, chatUseCase, inboxUseCase)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	router.SetupChatRouter(e, chatHandler)
	router.SetupInboxRouter(e, inboxHandler)
	router.SetupWebSocketRouter(e, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
