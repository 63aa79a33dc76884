package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authDelivery "inboxhub-backend/internal/auth/delivery"
	authUsecase "inboxhub-backend/internal/auth/usecase"
	catDelivery "inboxhub-backend/internal/categorization/delivery"
	catUsecase "inboxhub-backend/internal/categorization/usecase"
	connDelivery "inboxhub-backend/internal/connection/delivery"
	connUsecase "inboxhub-backend/internal/connection/usecase"
	emailDelivery "inboxhub-backend/internal/email/delivery"
	emailUsecase "inboxhub-backend/internal/email/usecase"
)

func SetupRoutes(r *gin.Engine, authUc authUsecase.AuthUsecase, connUc connUsecase.ConnectionUsecase, emailUc emailUsecase.EmailUsecase, catUc catUsecase.CategorizationUsecase) {
	connectionHandler := connDelivery.NewConnectionHandler(connUc)
	emailHandler := emailDelivery.NewEmailHandler(emailUc)
	categorizationHandler := catDelivery.NewCategorizationHandler(catUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// OAuth redirect target (no auth; the state parameter carries the user)
		api.GET("/connections/:provider/callback", connectionHandler.Callback)

		// Connection routes (protected)
		connections := api.Group("/connections")
		connections.Use(authDelivery.AuthMiddleware(authUc))
		{
			connections.GET("", connectionHandler.List)
			connections.GET("/:provider/status", connectionHandler.Status)
			connections.GET("/:provider/authorize", connectionHandler.Authorize)
			connections.DELETE("/:provider", connectionHandler.Disconnect)
		}

		// Inbox routes (protected)
		inbox := api.Group("/inbox")
		inbox.Use(authDelivery.AuthMiddleware(authUc))
		{
			inbox.POST("/sync/:provider", emailHandler.Sync)
			inbox.GET("/threads", emailHandler.ListThreads)
			inbox.GET("/threads/:provider/:thread_id", emailHandler.GetThread)
			inbox.PATCH("/threads/:provider/:thread_id/read", emailHandler.MarkThreadAsRead)
			inbox.PATCH("/messages/:id/read", emailHandler.MarkAsRead)
			inbox.PATCH("/messages/:id/unread", emailHandler.MarkAsUnread)
		}

		// Categorization routes (protected)
		categorization := api.Group("/categorization")
		categorization.Use(authDelivery.AuthMiddleware(authUc))
		{
			categorization.POST("/run", categorizationHandler.Run)
		}

		// Settings routes (protected) - prompt configuration
		settings := api.Group("/settings")
		settings.Use(authDelivery.AuthMiddleware(authUc))
		{
			settings.GET("/prompt", categorizationHandler.GetPrompt)
			settings.PUT("/prompt", categorizationHandler.UpdatePrompt)
			settings.POST("/prompt/reset", categorizationHandler.ResetPrompt)
		}
	}
}
