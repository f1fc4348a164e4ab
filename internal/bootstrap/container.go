package bootstrap

import (
	"context"
	"log"

	"ai-plantcare-be/internal/config"
	"ai-plantcare-be/internal/controller"
	"ai-plantcare-be/internal/handler"
	"ai-plantcare-be/internal/pkg/logger"
	"ai-plantcare-be/internal/repository/memory"
	"ai-plantcare-be/internal/repository/unitofwork"
	"ai-plantcare-be/internal/service"
	"ai-plantcare-be/internal/websocket"
	"ai-plantcare-be/pkg/agent"
	"ai-plantcare-be/pkg/contextstore"
	"ai-plantcare-be/pkg/diagnosis"
	"ai-plantcare-be/pkg/embedding"
	"ai-plantcare-be/pkg/llm/factory"
	visiongemini "ai-plantcare-be/pkg/vision/gemini"

	pkgNats "ai-plantcare-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatbotController  controller.IChatbotController
	DiagnoseController controller.IDiagnoseController
	PodcastController  controller.IPodcastController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	ctx := context.Background()

	// 1. Core facades
	uowFactory := unitofwork.NewFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus (in-process jobs)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		ctx,
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	visionProvider, err := visiongemini.NewGeminiVisionProvider(ctx, cfg.Keys.GoogleGemini, cfg.Ai.VisionModel)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Vision Provider: %v", err)
	}
	log.Printf("[INFO] Using Vision Model: %s", cfg.Ai.VisionModel)

	// In-memory session scratchpad
	sessionRepo := memory.NewSessionRepository()

	// 4. Infrastructure
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pkgNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Domain components
	diagnosisPipeline := diagnosis.NewPipeline(visionProvider, llmProvider, sysLogger)
	contextStore := contextstore.NewStore(embeddingProvider, sysLogger)
	orchestrator := agent.NewOrchestrator(llmProvider, diagnosisPipeline, contextStore, sessionRepo, sysLogger)

	// 6. Services
	usageService := service.NewUsageService(rdb, cfg.Ai.DailyUsageLimit)
	publisherService := service.NewPublisherService(cfg.Keys.ContextTopicName, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.ContextTopicName,
		uowFactory,
		llmProvider,
		contextStore,
	)

	chatbotService := service.NewChatbotService(
		uowFactory,
		orchestrator,
		sessionRepo,
		usageService,
		publisherService,
		sysLogger,
	)
	diagnosisService := service.NewDiagnosisService(
		diagnosisPipeline,
		usageService,
		publisherService,
		natsPub,
		sysLogger,
	)
	podcastContextService := service.NewPodcastContextService(uowFactory, contextStore)

	notifService := service.NewNotificationService(natsSub, wsHub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
		ChatbotController:   controller.NewChatbotController(chatbotService),
		DiagnoseController:  controller.NewDiagnoseController(diagnosisService),
		PodcastController:   controller.NewPodcastController(podcastContextService),

		ConsumerService: consumerService,
	}
}
