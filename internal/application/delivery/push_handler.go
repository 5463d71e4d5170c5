package delivery

import (
	"errors"
	"net/http"

	"onlyjobs-backend/internal/application/domain"
	"onlyjobs-backend/internal/application/dto"
	"onlyjobs-backend/internal/application/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PushHandler struct {
	intake usecase.IntakeUsecase
	log    *zap.Logger
}

func NewPushHandler(intake usecase.IntakeUsecase, log *zap.Logger) *PushHandler {
	return &PushHandler{
		intake: intake,
		log:    log.Named("push"),
	}
}

// Process handles a Pub/Sub push delivery. Any 2xx acknowledges the
// message, so only failures worth redelivering answer 500.
func (h *PushHandler) Process(c *gin.Context) {
	var req dto.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ProcessResponse{Status: "invalid", Error: "invalid push envelope"})
		return
	}
	if len(req.Message.Data) == 0 {
		c.JSON(http.StatusBadRequest, dto.ProcessResponse{Status: "invalid", Error: "push message has no data"})
		return
	}

	app, err := h.intake.Process(c.Request.Context(), req.Message.Data)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.ProcessResponse{Status: "stored", MessageID: app.MessageID, Company: app.Company})
	case errors.Is(err, domain.ErrDiscarded):
		c.JSON(http.StatusOK, dto.ProcessResponse{Status: "discarded"})
	case errors.Is(err, domain.ErrMalformedPayload):
		h.log.Warn("dropping malformed payload",
			zap.String("push_id", req.Message.MessageID),
			zap.Error(err))
		c.JSON(http.StatusOK, dto.ProcessResponse{Status: "dropped", Error: err.Error()})
	default:
		h.log.Error("failed to process pushed message",
			zap.String("push_id", req.Message.MessageID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ProcessResponse{Status: "error", Error: err.Error()})
	}
}
