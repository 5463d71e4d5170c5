package delivery

import (
	"net/http"
	"strconv"

	"onlyjobs-backend/internal/email/domain"
	"onlyjobs-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

type FetchHandler struct {
	fetchUsecase usecase.FetchUsecase
}

func NewFetchHandler(fetchUsecase usecase.FetchUsecase) *FetchHandler {
	return &FetchHandler{
		fetchUsecase: fetchUsecase,
	}
}

// FetchAll is triggered by the scheduler. ?backfill=true walks whole
// mailboxes, ?uid= limits the run to one user.
func (h *FetchHandler) FetchAll(c *gin.Context) {
	mode := domain.FetchIncremental
	if backfill, err := strconv.ParseBool(c.Query("backfill")); err == nil && backfill {
		mode = domain.FetchBackfill
	}

	summary, err := h.fetchUsecase.FetchAll(c.Request.Context(), mode, c.Query("uid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
