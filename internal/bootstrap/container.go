package bootstrap

import (
	"log"
	"time"

	"github.com/twara244/feeling-dumb/internal/config"
	"github.com/twara244/feeling-dumb/internal/controller"
	"github.com/twara244/feeling-dumb/internal/pkg/logger"
	"github.com/twara244/feeling-dumb/internal/pkg/mailer"
	"github.com/twara244/feeling-dumb/internal/repository/memory"
	"github.com/twara244/feeling-dumb/internal/repository/unitofwork"
	"github.com/twara244/feeling-dumb/internal/service"
	"github.com/twara244/feeling-dumb/pkg/llm/factory"

	"gorm.io/gorm"
)

type Container struct {
	AuthController controller.IAuthController
	UserController controller.IUserController
	ChatController controller.IChatController

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. LLM provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBase,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Summaries stay valid until the next write to their chat; the TTL just
	// bounds staleness if an invalidation is ever missed.
	summaryCache := memory.NewSummaryCache(30 * time.Minute)

	// 3. Services
	authService := service.NewAuthService(
		uowFactory,
		emailService,
		sysLogger,
		cfg.Keys.JWTSecret,
		cfg.App.ClientURL,
		cfg.OAuth.GoogleClientID,
	)
	oauthService := service.NewOAuthService(
		uowFactory,
		authService,
		sysLogger,
		cfg.OAuth.GoogleClientID,
		cfg.OAuth.GoogleClientSecret,
		cfg.OAuth.GoogleRedirectURL,
	)
	userService := service.NewUserService(uowFactory, sysLogger)
	chatService := service.NewChatService(uowFactory, llmProvider, summaryCache, sysLogger)

	// 4. Controllers
	return &Container{
		AuthController: controller.NewAuthController(authService, oauthService),
		UserController: controller.NewUserController(userService),
		ChatController: controller.NewChatController(chatService),

		Logger: sysLogger,
	}
}
