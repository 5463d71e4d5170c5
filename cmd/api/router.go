package api

import (
	"net/http"

	appDelivery "onlyjobs-backend/internal/application/delivery"
	"onlyjobs-backend/internal/auth/delivery"
	authUsecase "onlyjobs-backend/internal/auth/usecase"
	credentialDelivery "onlyjobs-backend/internal/credential/delivery"
	emailDelivery "onlyjobs-backend/internal/email/delivery"
	notificationDelivery "onlyjobs-backend/internal/notification/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	verifier authUsecase.IdentityVerifier,
	credentialHandler *credentialDelivery.CredentialHandler,
	fetchHandler *emailDelivery.FetchHandler,
	pushHandler *appDelivery.PushHandler,
	notificationHandler *notificationDelivery.NotificationHandler,
) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Gmail connection routes. The callback comes from Google's
		// redirect and carries no bearer token.
		gmail := api.Group("/gmail")
		{
			gmail.GET("/callback", credentialHandler.Callback)
			gmail.POST("/auth-url", delivery.AuthMiddleware(verifier), credentialHandler.AuthURL)
			gmail.POST("/finalize-tokens", delivery.AuthMiddleware(verifier), credentialHandler.Finalize)
			gmail.GET("/status", delivery.AuthMiddleware(verifier), credentialHandler.Status)
			gmail.DELETE("/disconnect", delivery.AuthMiddleware(verifier), credentialHandler.Disconnect)
		}

		// FCM routes (protected)
		if notificationHandler != nil {
			fcm := api.Group("/fcm")
			fcm.Use(delivery.AuthMiddleware(verifier))
			{
				fcm.POST("/register", notificationHandler.Register)
				fcm.DELETE("/:token", notificationHandler.Unregister)
			}
		}
	}

	// Pipeline triggers: the scheduler and the Pub/Sub push subscription.
	r.POST("/fetch", fetchHandler.FetchAll)
	r.POST("/process", pushHandler.Process)
}
