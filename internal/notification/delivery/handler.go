package delivery

import (
	"errors"
	"net/http"

	authdelivery "onlyjobs-backend/internal/auth/delivery"
	"onlyjobs-backend/internal/notification/domain"
	"onlyjobs-backend/internal/notification/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

type NotificationHandler struct {
	notificationUsecase usecase.NotificationUsecase
	log                 *zap.Logger
}

func NewNotificationHandler(notificationUsecase usecase.NotificationUsecase, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationUsecase: notificationUsecase,
		log:                 log.Named("notification-handler"),
	}
}

func (h *NotificationHandler) Register(c *gin.Context) {
	identity, ok := authdelivery.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	err := h.notificationUsecase.Register(c.Request.Context(), identity.UserID, req.Token, req.DeviceInfo)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "device registered"})
	case errors.Is(err, domain.ErrEmptyToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("register failed", zap.String("user_id", identity.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
	}
}

func (h *NotificationHandler) Unregister(c *gin.Context) {
	identity, ok := authdelivery.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	err := h.notificationUsecase.Unregister(c.Request.Context(), identity.UserID, c.Param("token"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "device unregistered"})
	case errors.Is(err, domain.ErrEmptyToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("unregister failed", zap.String("user_id", identity.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister device"})
	}
}
