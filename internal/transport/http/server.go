package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"kbchat/internal/ai"
	appsvc "kbchat/internal/app"
	"kbchat/internal/bootstrap"
	"kbchat/internal/contextstore"
	"kbchat/internal/platform/rabbitmq"
	"kbchat/internal/repository"
	"kbchat/internal/transport/http/handler"
	"kbchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	chatRepo := repository.NewChatRepository(app.MySQL)
	chatListRepo := repository.NewChatListRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)

	convContext := contextstore.NewRedisStore(app.Redis, app.Config.Chat.ContextWindow, 24*time.Hour)
	ingestPublisher := rabbitmq.NewIngestPublisher(app.MQConn, app.Config.RabbitMQ.IngestQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		chatRepo,
		chatListRepo,
		convContext,
		app.KBClient,
		appsvc.GenerationSettings{
			KnowledgeBaseID:  app.Config.KnowledgeBase.KnowledgeBaseID,
			ModelID:          app.Config.KnowledgeBase.ModelID,
			EncryptionKeyRef: app.Config.KnowledgeBase.EncryptionKeyRef,
			DataSources:      app.Config.KnowledgeBase.DataSources,
			Params: ai.GenerationParams{
				MaxTokens:   app.Config.KnowledgeBase.MaxTokens,
				Temperature: app.Config.KnowledgeBase.Temperature,
				TopP:        app.Config.KnowledgeBase.TopP,
				TopK:        app.Config.KnowledgeBase.TopK,
			},
			TitleMaxLen: app.Config.Chat.TitleMaxLen,
		},
	)
	docService := appsvc.NewDocumentService(
		docRepo,
		app.ObjectStore,
		ingestPublisher,
		app.KBClient,
		app.Config.KnowledgeBase.KnowledgeBaseID,
		app.Config.KnowledgeBase.DataSourceID,
		time.Duration(app.Config.ObjectStore.PresignTTLHours)*time.Hour,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	docHandler := handler.NewDocumentHandler(docService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	authed.POST("/ask", chatHandler.Ask)
	authed.POST("/ask/freeform", chatHandler.AskFreeForm)
	authed.POST("/lookup", chatHandler.InstantLookup)

	authed.POST("/chats", chatHandler.CreateChat)
	authed.GET("/chats", chatHandler.ListChats)
	authed.GET("/chats/pinned", chatHandler.ListPinnedChats)
	authed.GET("/chats/:id", chatHandler.GetChat)
	authed.POST("/chats/:id/messages", chatHandler.AppendToChat)
	authed.PATCH("/chats/:id/title", chatHandler.RenameChat)
	authed.POST("/chats/pin", chatHandler.PinChat)
	authed.POST("/chats/:id/unpin", chatHandler.UnpinChat)
	authed.DELETE("/chats/:id", chatHandler.DeleteChat)

	authed.POST("/documents", docHandler.Upload)
	authed.GET("/documents", docHandler.List)
	authed.GET("/documents/:id/url", docHandler.Download)
	authed.DELETE("/documents/:id", docHandler.Delete)
	authed.POST("/documents/resync", docHandler.Resync)

	return router
}
