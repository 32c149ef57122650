package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictCommand_UsesFallbacksWithoutProvider(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("APP_EXPORT_DIR", filepath.Join(dir, "exports"))

	productPath := filepath.Join(dir, "product.json")
	require.NoError(t, os.WriteFile(productPath, []byte(`{
		"id": "tote-01",
		"name": "Canvas tote",
		"inventory": {"current_stock": 8, "reorder_point": 15, "max_stock": 60}
	}`), 0o644))

	historyPath := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(historyPath, []byte("date,quantity\n2026-01-01,3\n2026-01-02,4\n"), 0o644))

	var out bytes.Buffer
	err := newApp(&out).Run([]string{"forecast", "predict", "--product", productPath, "--history", historyPath, "--timeframe", "15d"})
	require.NoError(t, err)

	var report domain.PredictionReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "tote-01", report.Prediction.ProductID)
	assert.Equal(t, "15d", report.Prediction.Timeframe)
	assert.Equal(t, 15, report.Prediction.PredictedDemand)
	assert.Equal(t, 18, report.Prediction.SuggestedReorderQuantity)
	require.NotNil(t, report.Outlook)
	assert.True(t, report.Outlook.ShouldReorder)
}

func TestPredictCommand_RequiresFlags(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"forecast", "predict", "--product", "p.json"})
	assert.Error(t, err)
}
