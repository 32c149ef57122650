// Package ingest reads products and sales history from files exported by
// storefronts and spreadsheets.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingColumn     = errors.New("missing required column")
)

var (
	dateColumns     = []string{"date", "sold_at", "sale_date", "day"}
	quantityColumns = []string{"quantity", "qty", "units", "sales", "units_sold"}

	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
		"01/02/2006",
		"02-Jan-2006",
		"01-02-06",
	}
)

// ReadSalesHistory loads sales records from a .csv, .xlsx or .json file and
// returns them ordered oldest first.
func ReadSalesHistory(path string) ([]domain.SalesRecord, error) {
	var (
		records []domain.SalesRecord
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSVFile(path)
	case ".xlsx":
		records, err = readXLSXFile(path)
	case ".json":
		records, err = readJSONFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	SortByDate(records)
	return records, nil
}

// SortByDate orders records oldest first, keeping the file order for equal dates.
func SortByDate(records []domain.SalesRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}

func readCSVFile(path string) ([]domain.SalesRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadCSV parses sales records from CSV with a header row.
func ReadCSV(r io.Reader) ([]domain.SalesRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return parseRows(rows, parseDateCell)
}

func readXLSXFile(path string) ([]domain.SalesRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var table [][]string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %w", path, err)
		}
		table = append(table, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in %s: %w", path, err)
	}

	records, err := parseRows(table, parseXLSXDateCell)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func parseRows(rows [][]string, parseDate func(string) (time.Time, error)) ([]domain.SalesRecord, error) {
	if len(rows) == 0 {
		return []domain.SalesRecord{}, nil
	}

	dateIdx, qtyIdx, err := headerIndexes(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]domain.SalesRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}
		if dateIdx >= len(row) || qtyIdx >= len(row) {
			return nil, fmt.Errorf("row %d: expected at least %d columns", line, max(dateIdx, qtyIdx)+1)
		}

		date, err := parseDate(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		qty, err := parseQuantity(row[qtyIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		records = append(records, domain.SalesRecord{Date: date, Quantity: qty})
	}
	return records, nil
}

func headerIndexes(header []string) (int, int, error) {
	dateIdx, qtyIdx := -1, -1
	for i, h := range header {
		name := normalizeHeader(h)
		if dateIdx < 0 && contains(dateColumns, name) {
			dateIdx = i
		}
		if qtyIdx < 0 && contains(quantityColumns, name) {
			qtyIdx = i
		}
	}
	if dateIdx < 0 {
		return 0, 0, fmt.Errorf("%w: date", ErrMissingColumn)
	}
	if qtyIdx < 0 {
		return 0, 0, fmt.Errorf("%w: quantity", ErrMissingColumn)
	}
	return dateIdx, qtyIdx, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDateCell(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseXLSXDateCell also accepts raw Excel serial dates.
func parseXLSXDateCell(s string) (time.Time, error) {
	if t, err := parseDateCell(s); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return excelize.ExcelDateToTime(serial, false)
}

// parseQuantity accepts integers, thousands separators and decimals, which
// are truncated. Negative quantities (returns) are rejected.
func parseQuantity(s string) (int, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v > math.MaxInt32 {
		return 0, fmt.Errorf("quantity out of range %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative quantity %q", s)
	}
	return int(v), nil
}

type jsonSalesRecord struct {
	Date     string          `json:"date"`
	SoldAt   string          `json:"sold_at"`
	Quantity json.RawMessage `json:"quantity"`
}

func readJSONFile(path string) ([]domain.SalesRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read json file %s: %w", path, err)
	}
	records, err := ParseJSONHistory(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseJSONHistory accepts either an array of {date, quantity} objects or an
// object with a "history" array.
func ParseJSONHistory(data []byte) ([]domain.SalesRecord, error) {
	var raw []jsonSalesRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapped struct {
			History []jsonSalesRecord `json:"history"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || wrapped.History == nil {
			return nil, fmt.Errorf("decode sales history: %w", err)
		}
		raw = wrapped.History
	}

	records := make([]domain.SalesRecord, 0, len(raw))
	for i, r := range raw {
		dateStr := r.Date
		if dateStr == "" {
			dateStr = r.SoldAt
		}
		date, err := parseDateCell(dateStr)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		qtyStr := strings.Trim(string(r.Quantity), `"`)
		qty, err := parseQuantity(qtyStr)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, domain.SalesRecord{Date: date, Quantity: qty})
	}
	return records, nil
}
