package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/repository"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.May, 4, 8, 0, 0, 0, time.UTC)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *mockRepo) GetSalesHistory(ctx context.Context, productID string, since time.Time) ([]domain.SalesRecord, error) {
	args := m.Called(ctx, productID, since)
	h, _ := args.Get(0).([]domain.SalesRecord)
	return h, args.Error(1)
}

func (m *mockRepo) ListProductIDs(ctx context.Context, category string, limit int) ([]string, error) {
	args := m.Called(ctx, category, limit)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) PredictDemand(ctx context.Context, product domain.Product, history []domain.SalesRecord, timeframe string) (*domain.InventoryPrediction, error) {
	args := m.Called(ctx, product, history, timeframe)
	p, _ := args.Get(0).(*domain.InventoryPrediction)
	return p, args.Error(1)
}

// memoryCache is a CatalogCache backed by a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*domain.CatalogSnapshot
	getErr  error
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*domain.CatalogSnapshot{}}
}

func (c *memoryCache) key(id string, days int) string { return fmt.Sprintf("%s/%d", id, days) }

func (c *memoryCache) Get(_ context.Context, id string, days int) (*domain.CatalogSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	s, ok := c.entries[c.key(id, days)]
	return s, ok, nil
}

func (c *memoryCache) Set(_ context.Context, days int, s *domain.CatalogSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[c.key(s.Product.ID, days)] = s
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, id+"/") {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memoryCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}

func (c *memoryCache) Close() error { return nil }

type memoryStorage struct {
	objects map[string][]byte
}

func (s *memoryStorage) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (s *memoryStorage) DownloadObject(context.Context, string, string) error { return nil }

func (s *memoryStorage) UploadObject(_ context.Context, key string, data []byte) error {
	s.objects[key] = data
	return nil
}

func product(id string) *domain.Product {
	return &domain.Product{
		ID:        id,
		Name:      "Product " + id,
		Inventory: domain.InventoryState{CurrentStock: 30, ReorderPoint: 10, MaxStock: 100},
	}
}

func prediction(id, tf string, demand int) *domain.InventoryPrediction {
	return &domain.InventoryPrediction{
		ProductID:                id,
		PredictedDemand:          demand,
		Confidence:               0.8,
		Timeframe:                tf,
		SuggestedReorderQuantity: demand,
		Factors:                  []domain.PredictionFactor{},
	}
}

func newTestService(p DemandPredictor, repo repository.CatalogRepository, c *memoryCache, store storage.ObjectStorage) *PredictionService {
	return NewPredictionService(p, repo, c, store, Options{
		HistoryDays:      90,
		BatchConcurrency: 2,
		Now:              func() time.Time { return testNow },
	})
}

func TestPredict_ReadsThroughCache(t *testing.T) {
	history := []domain.SalesRecord{{Date: testNow.AddDate(0, 0, -1), Quantity: 3}}

	repo := new(mockRepo)
	repo.On("GetProduct", mock.Anything, "p1").Return(product("p1"), nil).Once()
	repo.On("GetSalesHistory", mock.Anything, "p1", testNow.AddDate(0, 0, -90)).Return(history, nil).Once()

	pred := new(mockPredictor)
	pred.On("PredictDemand", mock.Anything, *product("p1"), history, "30d").Return(prediction("p1", "30d", 30), nil).Twice()

	c := newMemoryCache()
	svc := newTestService(pred, repo, c, nil)

	report, err := svc.Predict(context.Background(), "p1", "")
	require.NoError(t, err)
	assert.Equal(t, 30, report.Prediction.PredictedDemand)
	assert.Equal(t, testNow, report.GeneratedAt)
	require.NotNil(t, report.Outlook)
	assert.Equal(t, 1.0, report.Outlook.DailyDemand)
	assert.Equal(t, 30.0, *report.Outlook.DaysUntilStockout)
	assert.False(t, report.Outlook.ShouldReorder)

	_, err = svc.Predict(context.Background(), "p1", "30d")
	require.NoError(t, err)

	assert.Equal(t, 1, c.sets)
	repo.AssertExpectations(t)
	pred.AssertExpectations(t)
}

func TestPredict_CacheErrorFallsBackToRepository(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetProduct", mock.Anything, "p1").Return(product("p1"), nil)
	repo.On("GetSalesHistory", mock.Anything, "p1", mock.Anything).Return(nil, nil)

	pred := new(mockPredictor)
	pred.On("PredictDemand", mock.Anything, mock.Anything, []domain.SalesRecord{}, "2w").Return(prediction("p1", "2w", 0), nil)

	c := newMemoryCache()
	c.getErr = errors.New("redis down")

	report, err := newTestService(pred, repo, c, nil).Predict(context.Background(), "p1", "2w")
	require.NoError(t, err)
	assert.Nil(t, report.Outlook.DaysUntilStockout)
}

func TestPredict_Errors(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetProduct", mock.Anything, "missing").Return(nil, fmt.Errorf("%w: missing", repository.ErrProductNotFound))
	pred := new(mockPredictor)
	svc := newTestService(pred, repo, newMemoryCache(), nil)

	_, err := svc.Predict(context.Background(), "p1", "fortnight")
	assert.ErrorIs(t, err, domain.ErrInvalidTimeframe)

	_, err = svc.Predict(context.Background(), "missing", "30d")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = NewPredictionService(pred, nil, nil, nil, Options{}).Predict(context.Background(), "p1", "")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	pred.AssertNotCalled(t, "PredictDemand", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPredict_PredictionFailurePropagates(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetProduct", mock.Anything, "p1").Return(product("p1"), nil)
	repo.On("GetSalesHistory", mock.Anything, "p1", mock.Anything).Return([]domain.SalesRecord{}, nil)

	pred := new(mockPredictor)
	pred.On("PredictDemand", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &forecast.PredictionError{ProductID: "p1"})

	_, err := newTestService(pred, repo, newMemoryCache(), nil).Predict(context.Background(), "p1", "")
	assert.ErrorIs(t, err, forecast.ErrPredictionFailed)
}

func TestPredictSnapshot(t *testing.T) {
	pred := new(mockPredictor)
	pred.On("PredictDemand", mock.Anything, *product("adhoc"), []domain.SalesRecord{}, "7d").Return(prediction("adhoc", "7d", 14), nil)
	svc := newTestService(pred, nil, newMemoryCache(), nil)

	report, err := svc.PredictSnapshot(context.Background(), domain.CatalogSnapshot{Product: *product("adhoc")}, "7d")
	require.NoError(t, err)
	assert.Equal(t, 2.0, report.Outlook.DailyDemand)
	assert.Equal(t, 15.0, *report.Outlook.DaysUntilStockout)

	_, err = svc.PredictSnapshot(context.Background(), domain.CatalogSnapshot{Product: domain.Product{ID: "x"}}, "7d")
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestPredictBatch_ReportsPerItemFailures(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetProduct", mock.Anything, "a").Return(product("a"), nil)
	repo.On("GetProduct", mock.Anything, "b").Return(nil, repository.ErrProductNotFound)
	repo.On("GetProduct", mock.Anything, "c").Return(product("c"), nil)
	repo.On("GetProduct", mock.Anything, "d").Return(nil, errors.New("pq: connection reset"))
	repo.On("GetSalesHistory", mock.Anything, mock.Anything, mock.Anything).Return([]domain.SalesRecord{}, nil)

	pred := new(mockPredictor)
	pred.On("PredictDemand", mock.Anything, *product("a"), mock.Anything, "30d").Return(prediction("a", "30d", 5), nil)
	pred.On("PredictDemand", mock.Anything, *product("c"), mock.Anything, "30d").Return(nil, &forecast.PredictionError{ProductID: "c"})

	result, err := newTestService(pred, repo, newMemoryCache(), nil).
		PredictBatch(context.Background(), []string{"a", "b", "a", " ", "c", "d"}, "")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "30d", result.Timeframe)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Items, 4)

	assert.Equal(t, "a", result.Items[0].ProductID)
	assert.NotNil(t, result.Items[0].Report)
	assert.Equal(t, domain.BatchItem{ProductID: "b", Error: "product not found"}, result.Items[1])
	assert.Equal(t, domain.BatchItem{ProductID: "c", Error: "failed to predict inventory demand"}, result.Items[2])
	assert.Equal(t, domain.BatchItem{ProductID: "d", Error: "failed to load product"}, result.Items[3])
}

type slowPredictor struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *slowPredictor) PredictDemand(ctx context.Context, product domain.Product, history []domain.SalesRecord, tf string) (*domain.InventoryPrediction, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return prediction(product.ID, tf, 1), nil
}

func TestPredictBatch_BoundsConcurrency(t *testing.T) {
	repo := new(mockRepo)
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
		repo.On("GetProduct", mock.Anything, ids[i]).Return(product(ids[i]), nil)
	}
	repo.On("GetSalesHistory", mock.Anything, mock.Anything, mock.Anything).Return([]domain.SalesRecord{}, nil)

	pred := &slowPredictor{}
	result, err := newTestService(pred, repo, newMemoryCache(), nil).PredictBatch(context.Background(), ids, "30d")
	require.NoError(t, err)

	assert.Equal(t, 8, result.Succeeded)
	assert.LessOrEqual(t, pred.peak.Load(), int32(2))
}

func TestPredictBatch_InvalidRequests(t *testing.T) {
	svc := newTestService(new(mockPredictor), new(mockRepo), newMemoryCache(), nil)

	_, err := svc.PredictBatch(context.Background(), []string{" ", ""}, "30d")
	assert.ErrorIs(t, err, ErrNoProducts)

	_, err = svc.PredictBatch(context.Background(), []string{"a"}, "0d")
	assert.ErrorIs(t, err, domain.ErrInvalidTimeframe)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.PredictBatch(ctx, []string{"a"}, "30d")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictCatalog(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ListProductIDs", mock.Anything, "Bags", 5).Return([]string{"a"}, nil)
	repo.On("GetProduct", mock.Anything, "a").Return(product("a"), nil)
	repo.On("GetSalesHistory", mock.Anything, "a", mock.Anything).Return([]domain.SalesRecord{}, nil)

	pred := new(mockPredictor)
	pred.On("PredictDemand", mock.Anything, mock.Anything, mock.Anything, "30d").Return(prediction("a", "30d", 3), nil)

	result, err := newTestService(pred, repo, newMemoryCache(), nil).PredictCatalog(context.Background(), "Bags", 5, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	repo2 := new(mockRepo)
	repo2.On("ListProductIDs", mock.Anything, "", 0).Return([]string{}, nil)
	_, err = newTestService(pred, repo2, newMemoryCache(), nil).PredictCatalog(context.Background(), "", 0, "")
	assert.ErrorIs(t, err, ErrNoProducts)
}

func TestExportBatch(t *testing.T) {
	days := 12.5
	result := &domain.BatchResult{
		RunID:     "run-1",
		Timeframe: "30d",
		StartedAt: testNow,
		Items: []domain.BatchItem{
			{ProductID: "a", Report: &domain.PredictionReport{
				Prediction: domain.InventoryPrediction{PredictedDemand: 12, Confidence: 0.7, SuggestedReorderQuantity: 14},
				Outlook:    &domain.StockOutlook{DailyDemand: 0.4, DaysUntilStockout: &days, ShouldReorder: false},
			}},
			{ProductID: "b", Error: "product not found"},
		},
	}

	store := &memoryStorage{objects: map[string][]byte{}}
	svc := newTestService(new(mockPredictor), nil, newMemoryCache(), store)

	key, err := svc.ExportBatch(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, "predictions/2026-05-04/run-1.csv", key)

	lines := strings.Split(strings.TrimSpace(string(store.objects[key])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "run_id,product_id,timeframe,predicted_demand,confidence,suggested_reorder_quantity,daily_demand,days_until_stockout,should_reorder,error", lines[0])
	assert.Equal(t, "run-1,a,30d,12,0.70,14,0.40,12.5,false,", lines[1])
	assert.Equal(t, "run-1,b,30d,,,,,,,product not found", lines[2])

	reports, err := svc.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, key, reports[0].Key)

	_, err = newTestService(new(mockPredictor), nil, newMemoryCache(), nil).ExportBatch(context.Background(), result)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestInvalidateProduct(t *testing.T) {
	c := newMemoryCache()
	require.NoError(t, c.Set(context.Background(), 90, &domain.CatalogSnapshot{Product: *product("p1")}))

	svc := newTestService(new(mockPredictor), new(mockRepo), c, nil)
	require.NoError(t, svc.InvalidateProduct(context.Background(), "p1"))

	_, ok, err := c.Get(context.Background(), "p1", 90)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	c := newMemoryCache()
	require.NoError(t, c.Set(context.Background(), 90, &domain.CatalogSnapshot{Product: *product("p1")}))
	require.NoError(t, c.Set(context.Background(), 30, &domain.CatalogSnapshot{Product: *product("p2")}))

	svc := newTestService(new(mockPredictor), new(mockRepo), c, nil)
	require.NoError(t, svc.InvalidateAll(context.Background()))

	for _, id := range []string{"p1", "p2"} {
		_, ok, err := c.Get(context.Background(), id, 90)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Empty(t, c.entries)
}

// cancelingPredictor cancels the batch context on its first call.
type cancelingPredictor struct {
	cancel context.CancelFunc
	calls  atomic.Int32
}

func (p *cancelingPredictor) PredictDemand(ctx context.Context, product domain.Product, history []domain.SalesRecord, tf string) (*domain.InventoryPrediction, error) {
	p.calls.Add(1)
	p.cancel()
	return nil, ctx.Err()
}

func TestPredictBatch_CancelledMidRunFails(t *testing.T) {
	repo := new(mockRepo)
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		repo.On("GetProduct", mock.Anything, id).Return(product(id), nil)
	}
	repo.On("GetSalesHistory", mock.Anything, mock.Anything, mock.Anything).Return([]domain.SalesRecord{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pred := &cancelingPredictor{cancel: cancel}

	svc := NewPredictionService(pred, repo, newMemoryCache(), nil, Options{
		HistoryDays:      90,
		BatchConcurrency: 1,
		Now:              func() time.Time { return testNow },
	})
	result, err := svc.PredictBatch(ctx, ids, "30d")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), pred.calls.Load())
}
