package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/repository"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/service"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PredictionService is the part of *service.PredictionService the handler uses.
type PredictionService interface {
	Predict(ctx context.Context, productID, timeframe string) (*domain.PredictionReport, error)
	PredictSnapshot(ctx context.Context, snapshot domain.CatalogSnapshot, timeframe string) (*domain.PredictionReport, error)
	PredictBatch(ctx context.Context, productIDs []string, timeframe string) (*domain.BatchResult, error)
	PredictCatalog(ctx context.Context, category string, limit int, timeframe string) (*domain.BatchResult, error)
	ExportBatch(ctx context.Context, result *domain.BatchResult) (string, error)
	ListReports(ctx context.Context) ([]storage.ObjectInfo, error)
	InvalidateProduct(ctx context.Context, productID string) error
	InvalidateAll(ctx context.Context) error
}

type PredictionHandler struct {
	service PredictionService
}

func NewPredictionHandler(service PredictionService) *PredictionHandler {
	return &PredictionHandler{service: service}
}

type predictRequest struct {
	Product   *domain.Product      `json:"product"`
	History   []domain.SalesRecord `json:"history"`
	Timeframe string               `json:"timeframe"`
}

type batchRequest struct {
	ProductIDs []string `json:"product_ids"`
	Category   string   `json:"category"`
	Limit      int      `json:"limit"`
	Timeframe  string   `json:"timeframe"`
	Export     bool     `json:"export"`
}

type batchResponse struct {
	*domain.BatchResult
	ReportKey string `json:"report_key,omitempty"`
}

// PredictSnapshot handles POST /predictions with the product and its history
// in the body.
func (h *PredictionHandler) PredictSnapshot(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Product == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product is required"})
		return
	}

	report, err := h.service.PredictSnapshot(c.Request.Context(), domain.CatalogSnapshot{
		Product: *req.Product,
		History: req.History,
	}, req.Timeframe)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// PredictProduct handles GET /products/:id/prediction.
func (h *PredictionHandler) PredictProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product id is required"})
		return
	}

	report, err := h.service.Predict(c.Request.Context(), id, c.Query("timeframe"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// PredictBatch handles POST /predictions/batch. Without product ids the
// catalog is listed by category and limit.
func (h *PredictionHandler) PredictBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var (
		result *domain.BatchResult
		err    error
	)
	if len(req.ProductIDs) > 0 {
		result, err = h.service.PredictBatch(c.Request.Context(), req.ProductIDs, req.Timeframe)
	} else {
		result, err = h.service.PredictCatalog(c.Request.Context(), req.Category, req.Limit, req.Timeframe)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := batchResponse{BatchResult: result}
	if req.Export {
		key, err := h.service.ExportBatch(c.Request.Context(), result)
		if err != nil {
			log.Error().Err(err).Str("run_id", result.RunID).Msg("batch export failed")
		} else {
			resp.ReportKey = key
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListReports handles GET /reports.
func (h *PredictionHandler) ListReports(c *gin.Context) {
	reports, err := h.service.ListReports(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	items := make([]gin.H, 0, len(reports))
	for _, r := range reports {
		items = append(items, gin.H{"key": r.Key, "size": r.Size})
	}
	c.JSON(http.StatusOK, gin.H{"reports": items})
}

// InvalidateCache handles DELETE /products/:id/cache.
func (h *PredictionHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.InvalidateProduct(c.Request.Context(), c.Param("id")); err != nil {
		log.Error().Err(err).Str("product_id", c.Param("id")).Msg("cache invalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache"})
		return
	}
	c.Status(http.StatusNoContent)
}

// InvalidateAllCaches handles DELETE /cache.
func (h *PredictionHandler) InvalidateAllCaches(c *gin.Context) {
	if err := h.service.InvalidateAll(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("cache invalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleError maps service errors to responses. Unexpected errors get the
// opaque prediction failure message.
func (h *PredictionHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTimeframe),
		errors.Is(err, domain.ErrInvalidProduct),
		errors.Is(err, service.ErrNoProducts):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrCatalogUnavailable),
		errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		if !errors.Is(err, forecast.ErrPredictionFailed) {
			log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": forecast.ErrPredictionFailed.Error()})
	}
}
