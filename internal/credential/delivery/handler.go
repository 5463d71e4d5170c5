package delivery

import (
	"errors"
	"net/http"
	"net/url"

	authdelivery "onlyjobs-backend/internal/auth/delivery"
	"onlyjobs-backend/internal/credential/domain"
	"onlyjobs-backend/internal/credential/dto"
	"onlyjobs-backend/internal/credential/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CredentialHandler struct {
	credentialUsecase usecase.CredentialUsecase
	frontendURL       string
	log               *zap.Logger
}

func NewCredentialHandler(credentialUsecase usecase.CredentialUsecase, frontendURL string, log *zap.Logger) *CredentialHandler {
	return &CredentialHandler{
		credentialUsecase: credentialUsecase,
		frontendURL:       frontendURL,
		log:               log.Named("credential-handler"),
	}
}

func (h *CredentialHandler) AuthURL(c *gin.Context) {
	identity, ok := authdelivery.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	authURL, err := h.credentialUsecase.AuthURL(identity.UserID)
	if err != nil {
		h.log.Error("failed to build consent url", zap.String("user_id", identity.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build consent url"})
		return
	}
	c.JSON(http.StatusOK, dto.AuthURLResponse{AuthURL: authURL})
}

// Callback is hit by the browser returning from the consent screen. The
// caller is not authenticated here, so tokens are only staged.
func (h *CredentialHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.redirect(c, url.Values{"status": {"error"}, "message": {errParam}})
		return
	}

	handle, err := h.credentialUsecase.Stage(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		h.log.Warn("oauth callback failed", zap.Error(err))
		h.redirect(c, url.Values{"status": {"error"}, "message": {"authorization failed"}})
		return
	}
	h.redirect(c, url.Values{"status": {"success"}, "temp_token_id": {handle}})
}

func (h *CredentialHandler) redirect(c *gin.Context, params url.Values) {
	target, err := url.Parse(h.frontendURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid frontend redirect"})
		return
	}
	q := target.Query()
	for k, v := range params {
		q[k] = v
	}
	target.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, target.String())
}

func (h *CredentialHandler) Finalize(c *gin.Context) {
	identity, ok := authdelivery.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req dto.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "temp_token_id is required"})
		return
	}

	err := h.credentialUsecase.Finalize(c.Request.Context(), identity.UserID, req.TempTokenID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "gmail connected"})
	case errors.Is(err, domain.ErrStagedNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStagedExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		h.log.Error("finalize failed", zap.String("user_id", identity.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store credential"})
	}
}

func (h *CredentialHandler) Status(c *gin.Context) {
	identity, ok := authdelivery.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	connected, err := h.credentialUsecase.Connected(c.Request.Context(), identity.UserID)
	if err != nil {
		h.log.Error("status lookup failed", zap.String("user_id", identity.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read credential"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Connected: connected})
}

func (h *CredentialHandler) Disconnect(c *gin.Context) {
	identity, ok := authdelivery.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.credentialUsecase.Disconnect(c.Request.Context(), identity.UserID); err != nil {
		h.log.Error("disconnect failed", zap.String("user_id", identity.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "gmail disconnected"})
}
