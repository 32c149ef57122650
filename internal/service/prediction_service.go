package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/repository"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	ErrNoProducts         = errors.New("no products to predict")
	ErrCatalogUnavailable = errors.New("catalog is not configured")
	ErrStorageUnavailable = errors.New("report storage is not configured")
)

// DemandPredictor is the forecasting pipeline. *forecast.Predictor implements it.
type DemandPredictor interface {
	PredictDemand(ctx context.Context, product domain.Product, history []domain.SalesRecord, timeframe string) (*domain.InventoryPrediction, error)
}

// Options tune a PredictionService.
type Options struct {
	DefaultTimeframe string
	HistoryDays      int
	BatchConcurrency int
	ExportPrefix     string
	Now              func() time.Time
}

// PredictionService loads catalog data, runs predictions and exports reports.
// Repository, cache and storage are optional; operations that need a missing
// one return an error.
type PredictionService struct {
	predictor DemandPredictor
	repo      repository.CatalogRepository
	cache     cache.CatalogCache
	store     storage.ObjectStorage
	opts      Options
}

func NewPredictionService(predictor DemandPredictor, repo repository.CatalogRepository, cacheImpl cache.CatalogCache, store storage.ObjectStorage, opts Options) *PredictionService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopCatalogCache()
	}
	if opts.DefaultTimeframe == "" {
		opts.DefaultTimeframe = domain.DefaultTimeframe
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 365
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 4
	}
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = "predictions/"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PredictionService{
		predictor: predictor,
		repo:      repo,
		cache:     cacheImpl,
		store:     store,
		opts:      opts,
	}
}

func (s *PredictionService) timeframe(tf string) (string, error) {
	tf = strings.TrimSpace(tf)
	if tf == "" {
		tf = s.opts.DefaultTimeframe
	}
	if _, err := domain.ParseTimeframe(tf); err != nil {
		return "", err
	}
	return tf, nil
}

// Predict forecasts demand for a catalog product.
func (s *PredictionService) Predict(ctx context.Context, productID, timeframe string) (*domain.PredictionReport, error) {
	tf, err := s.timeframe(timeframe)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.loadSnapshot(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.predict(ctx, snapshot, tf)
}

// PredictSnapshot forecasts demand for a product supplied by the caller.
func (s *PredictionService) PredictSnapshot(ctx context.Context, snapshot domain.CatalogSnapshot, timeframe string) (*domain.PredictionReport, error) {
	tf, err := s.timeframe(timeframe)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Product.Validate(); err != nil {
		return nil, err
	}
	if snapshot.History == nil {
		snapshot.History = []domain.SalesRecord{}
	}

	return s.predict(ctx, &snapshot, tf)
}

func (s *PredictionService) predict(ctx context.Context, snapshot *domain.CatalogSnapshot, tf string) (*domain.PredictionReport, error) {
	pred, err := s.predictor.PredictDemand(ctx, snapshot.Product, snapshot.History, tf)
	if err != nil {
		return nil, err
	}

	report := &domain.PredictionReport{
		Prediction:  *pred,
		GeneratedAt: s.opts.Now().UTC(),
	}

	outlook, err := forecast.Outlook(*pred, snapshot.Product.Inventory)
	if err != nil {
		log.Warn().Err(err).Str("product_id", snapshot.Product.ID).Msg("prediction: outlook skipped")
	} else {
		report.Outlook = &outlook
	}

	return report, nil
}

// loadSnapshot reads through the cache. Cache failures are logged and ignored.
func (s *PredictionService) loadSnapshot(ctx context.Context, productID string) (*domain.CatalogSnapshot, error) {
	if s.repo == nil {
		return nil, ErrCatalogUnavailable
	}

	if snapshot, ok, err := s.cache.Get(ctx, productID, s.opts.HistoryDays); err == nil && ok {
		return snapshot, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("prediction: cache get snapshot failed")
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	since := s.opts.Now().AddDate(0, 0, -s.opts.HistoryDays)
	history, err := s.repo.GetSalesHistory(ctx, productID, since)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.SalesRecord{}
	}

	snapshot := &domain.CatalogSnapshot{Product: *product, History: history}
	if err := s.cache.Set(ctx, s.opts.HistoryDays, snapshot); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("prediction: cache set snapshot failed")
	}

	return snapshot, nil
}

// PredictBatch predicts every product independently with bounded
// parallelism. A product that fails is reported in its item; only an invalid
// request or a cancelled context fails the batch.
func (s *PredictionService) PredictBatch(ctx context.Context, productIDs []string, timeframe string) (*domain.BatchResult, error) {
	tf, err := s.timeframe(timeframe)
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(productIDs)
	if len(ids) == 0 {
		return nil, ErrNoProducts
	}

	result := &domain.BatchResult{
		RunID:     uuid.NewString(),
		Timeframe: tf,
		Items:     make([]domain.BatchItem, len(ids)),
		StartedAt: s.opts.Now().UTC(),
	}

	logger := log.With().Str("run_id", result.RunID).Logger()
	logger.Info().Int("products", len(ids)).Str("timeframe", tf).Msg("batch prediction started")

	sem := semaphore.NewWeighted(int64(s.opts.BatchConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			item := domain.BatchItem{ProductID: id}
			report, err := s.Predict(gctx, id, tf)
			// Item failures stay in the item; only cancellation stops the batch.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				item.Error = batchItemError(err)
				logger.Warn().Err(err).Str("product_id", id).Msg("batch prediction item failed")
			} else {
				item.Report = report
			}

			mu.Lock()
			result.Items[i] = item
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s: %w", result.RunID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch %s: %w", result.RunID, err)
	}

	for _, item := range result.Items {
		if item.Report != nil {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	result.CompletedAt = s.opts.Now().UTC()

	logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("elapsed", result.CompletedAt.Sub(result.StartedAt)).
		Msg("batch prediction completed")

	return result, nil
}

// PredictCatalog runs a batch over catalog products, optionally limited to a
// category.
func (s *PredictionService) PredictCatalog(ctx context.Context, category string, limit int, timeframe string) (*domain.BatchResult, error) {
	if s.repo == nil {
		return nil, ErrCatalogUnavailable
	}
	ids, err := s.repo.ListProductIDs(ctx, category, limit)
	if err != nil {
		return nil, err
	}
	return s.PredictBatch(ctx, ids, timeframe)
}

// ExportBatch writes a batch result as CSV to object storage and returns the
// object key.
func (s *PredictionService) ExportBatch(ctx context.Context, result *domain.BatchResult) (string, error) {
	if s.store == nil {
		return "", ErrStorageUnavailable
	}

	data, err := EncodeBatchCSV(result)
	if err != nil {
		return "", err
	}

	key := path.Join(s.opts.ExportPrefix, result.StartedAt.Format("2006-01-02"), result.RunID+".csv")
	if err := s.store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}

	log.Info().Str("run_id", result.RunID).Str("key", key).Int("bytes", len(data)).Msg("batch report exported")
	return key, nil
}

// ListReports lists exported batch reports.
func (s *PredictionService) ListReports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	return s.store.ListObjects(ctx, s.opts.ExportPrefix)
}

// DownloadReport copies an exported report to a local file.
func (s *PredictionService) DownloadReport(ctx context.Context, key, destPath string) error {
	if s.store == nil {
		return ErrStorageUnavailable
	}
	return s.store.DownloadObject(ctx, key, destPath)
}

// InvalidateProduct drops a cached snapshot, e.g. after new sales were loaded.
func (s *PredictionService) InvalidateProduct(ctx context.Context, productID string) error {
	return s.cache.Invalidate(ctx, productID)
}

// InvalidateAll drops every cached snapshot, e.g. after a bulk catalog import.
func (s *PredictionService) InvalidateAll(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

var batchCSVHeader = []string{
	"run_id", "product_id", "timeframe", "predicted_demand", "confidence",
	"suggested_reorder_quantity", "daily_demand", "days_until_stockout", "should_reorder", "error",
}

// EncodeBatchCSV renders one row per batch item.
func EncodeBatchCSV(result *domain.BatchResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(batchCSVHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, item := range result.Items {
		row := []string{result.RunID, item.ProductID, result.Timeframe, "", "", "", "", "", "", item.Error}
		if item.Report != nil {
			p := item.Report.Prediction
			row[3] = strconv.Itoa(p.PredictedDemand)
			row[4] = strconv.FormatFloat(p.Confidence, 'f', 2, 64)
			row[5] = strconv.Itoa(p.SuggestedReorderQuantity)
			if o := item.Report.Outlook; o != nil {
				row[6] = strconv.FormatFloat(o.DailyDemand, 'f', 2, 64)
				if o.DaysUntilStockout != nil {
					row[7] = strconv.FormatFloat(*o.DaysUntilStockout, 'f', 1, 64)
				}
				row[8] = strconv.FormatBool(o.ShouldReorder)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// batchItemError keeps internal detail out of batch output.
func batchItemError(err error) string {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return "product not found"
	case errors.Is(err, forecast.ErrPredictionFailed):
		return forecast.ErrPredictionFailed.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed to load product"
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
