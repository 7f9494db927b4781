package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Biniyam-Belay/rulDashboard/internal/domain/entity"
)

type PredictUseCase interface {
	PredictSingle(ctx context.Context, bearingID string, w entity.Window) (*entity.PredictionResult, error)
	PredictBatch(ctx context.Context, bearingID string, windows []entity.Window, mode entity.BatchMode) (*entity.BatchResult, error)
	RecentPredictions(ctx context.Context, bearingID string, limit int) ([]entity.PredictionRecord, error)
	Stats(ctx context.Context) (entity.ServiceStats, error)
	Ready() bool
}

type PredictHandler struct {
	UseCase      PredictUseCase
	MaxBatchSize int
}

func NewPredictHandler(u PredictUseCase, maxBatchSize int) *PredictHandler {
	return &PredictHandler{UseCase: u, MaxBatchSize: maxBatchSize}
}

type singleRequest struct {
	BearingID string                `json:"bearing_id"`
	Samples   []entity.SensorSample `json:"samples" binding:"required"`
}

type batchRequest struct {
	BearingID string                  `json:"bearing_id"`
	Mode      string                  `json:"mode"`
	Windows   [][]entity.SensorSample `json:"windows" binding:"required"`
}

func (h *PredictHandler) PredictSingle(c *gin.Context) {
	var req singleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.UseCase.PredictSingle(c.Request.Context(), req.BearingID, entity.Window(req.Samples))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PredictHandler) PredictBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Windows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "windows required"})
		return
	}
	// The core's memory use grows with the batch; the request boundary caps it.
	if h.MaxBatchSize > 0 && len(req.Windows) > h.MaxBatchSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":          "batch too large",
			"max_batch_size": h.MaxBatchSize,
		})
		return
	}

	mode := entity.BatchMode(req.Mode)
	if mode == "" {
		mode = entity.ModeTolerant
	}
	if mode != entity.ModeTolerant && mode != entity.ModeFast {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be tolerant or fast"})
		return
	}

	windows := make([]entity.Window, len(req.Windows))
	for i, w := range req.Windows {
		windows[i] = entity.Window(w)
	}

	res, err := h.UseCase.PredictBatch(c.Request.Context(), req.BearingID, windows, mode)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PredictHandler) GetRecent(c *gin.Context) {
	bearingID := c.Param("bearing_id")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = v
	}

	recs, err := h.UseCase.RecentPredictions(c.Request.Context(), bearingID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bearing_id": bearingID, "predictions": recs})
}

func (h *PredictHandler) GetStats(c *gin.Context) {
	stats, err := h.UseCase.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *PredictHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *PredictHandler) Readiness(c *gin.Context) {
	if !h.UseCase.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading artifacts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *PredictHandler) writeError(c *gin.Context, err error) {
	var sm *entity.SchemaMismatchError
	var ne *entity.NumericError
	var oe *entity.OracleError

	switch {
	case errors.Is(err, entity.ErrNotReady):
		// Retryable: the startup collaborator is still loading artifacts.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &sm):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    sm.Error(),
			"expected": sm.Expected,
			"got":      sm.Got,
		})
	case errors.As(err, &ne):
		c.JSON(http.StatusBadRequest, gin.H{"error": ne.Error()})
	case errors.As(err, &oe):
		c.JSON(http.StatusInternalServerError, gin.H{"error": oe.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
