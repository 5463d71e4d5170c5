package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	appDelivery "onlyjobs-backend/internal/application/delivery"
	authUsecase "onlyjobs-backend/internal/auth/usecase"
	credentialDelivery "onlyjobs-backend/internal/credential/delivery"
	emailDelivery "onlyjobs-backend/internal/email/delivery"
	notificationDelivery "onlyjobs-backend/internal/notification/delivery"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

type Handler struct {
	verifier            authUsecase.IdentityVerifier
	credentialHandler   *credentialDelivery.CredentialHandler
	fetchHandler        *emailDelivery.FetchHandler
	pushHandler         *appDelivery.PushHandler
	notificationHandler *notificationDelivery.NotificationHandler
	log                 *zap.Logger
}

// NewHandler collects the HTTP handlers. notificationHandler may be nil
// when device notifications are disabled.
func NewHandler(
	verifier authUsecase.IdentityVerifier,
	credentialHandler *credentialDelivery.CredentialHandler,
	fetchHandler *emailDelivery.FetchHandler,
	pushHandler *appDelivery.PushHandler,
	notificationHandler *notificationDelivery.NotificationHandler,
	log *zap.Logger,
) *Handler {
	return &Handler{
		verifier:            verifier,
		credentialHandler:   credentialHandler,
		fetchHandler:        fetchHandler,
		pushHandler:         pushHandler,
		notificationHandler: notificationHandler,
		log:                 log.Named("http"),
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Engine builds the router with middleware and every route registered.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log), corsMiddleware())
	SetupRoutes(r, h.verifier, h.credentialHandler, h.fetchHandler, h.pushHandler, h.notificationHandler)
	return r
}

// Start serves on addr until ctx is done, then drains in-flight requests.
func (h *Handler) Start(ctx context.Context, addr string) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	h.log.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}
