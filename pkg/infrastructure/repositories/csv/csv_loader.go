package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

var (
	storesHeader  = []string{"store_id", "name", "size_sqft", "income_index", "tier", "cluster_id"}
	historyHeader = []string{"date", "store_id", "category", "units"}
	actualsHeader = []string{"week", "store_id", "units"}
)

// Loader handles loading planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadStores loads store reference attributes from a CSV file.
// cluster_id may be left empty; it must then be empty for every store.
func (l *Loader) LoadStores(filename string) ([]*entities.Store, error) {
	records, err := readRecords(filename, "stores", storesHeader)
	if err != nil {
		return nil, err
	}

	stores := make([]*entities.Store, 0, len(records))
	for i, record := range records {
		store, err := parseStore(record)
		if err != nil {
			return nil, fmt.Errorf("stores CSV row %d: %w", i+2, err)
		}
		stores = append(stores, store)
	}
	return stores, nil
}

// LoadHistory loads prior-period sales observations from a CSV file
func (l *Loader) LoadHistory(filename string) ([]*entities.HistoricalSale, error) {
	records, err := readRecords(filename, "history", historyHeader)
	if err != nil {
		return nil, err
	}

	sales := make([]*entities.HistoricalSale, 0, len(records))
	for i, record := range records {
		sale, err := parseSale(record)
		if err != nil {
			return nil, fmt.Errorf("history CSV row %d: %w", i+2, err)
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

// WeekActuals is one week's submission read from an actuals file
type WeekActuals struct {
	Week  entities.Week
	Units []entities.StoreUnits
}

// LoadActuals loads weekly store sales from a CSV file, grouped by week in ascending order
func (l *Loader) LoadActuals(filename string) ([]WeekActuals, error) {
	records, err := readRecords(filename, "actuals", actualsHeader)
	if err != nil {
		return nil, err
	}

	byWeek := make(map[entities.Week][]entities.StoreUnits)
	for i, record := range records {
		week, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil || week <= 0 {
			return nil, fmt.Errorf("actuals CSV row %d: invalid week: %s", i+2, record[0])
		}
		storeID := strings.TrimSpace(record[1])
		if storeID == "" {
			return nil, fmt.Errorf("actuals CSV row %d: store_id cannot be empty", i+2)
		}
		units, err := parseQuantity("units", record[2])
		if err != nil {
			return nil, fmt.Errorf("actuals CSV row %d: %w", i+2, err)
		}
		w := entities.Week(week)
		byWeek[w] = append(byWeek[w], entities.StoreUnits{StoreID: entities.StoreID(storeID), Units: units})
	}

	weeks := make([]WeekActuals, 0, len(byWeek))
	for w, units := range byWeek {
		weeks = append(weeks, WeekActuals{Week: w, Units: units})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Week < weeks[j].Week })
	return weeks, nil
}

// Helper functions for parsing CSV records

// readRecords opens a CSV file, checks its header and returns the data rows
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()
	return parseRecords(file, kind, expectedHeader)
}

func parseRecords(r io.Reader, kind string, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(expectedHeader)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, records[0])
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseStore(record []string) (*entities.Store, error) {
	size, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid size_sqft: %s", record[2])
	}

	income, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid income_index: %s", record[3])
	}

	tier, err := strconv.Atoi(strings.TrimSpace(record[4]))
	if err != nil {
		return nil, fmt.Errorf("invalid tier: %s", record[4])
	}

	store, err := entities.NewStore(entities.StoreID(strings.TrimSpace(record[0])), record[1], size, income, tier)
	if err != nil {
		return nil, err
	}
	store.ClusterID = entities.ClusterID(strings.TrimSpace(record[5]))
	return store, nil
}

func parseSale(record []string) (*entities.HistoricalSale, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", record[0])
	}

	storeID := strings.TrimSpace(record[1])
	if storeID == "" {
		return nil, fmt.Errorf("store_id cannot be empty")
	}
	category := strings.TrimSpace(record[2])
	if category == "" {
		return nil, fmt.Errorf("category cannot be empty")
	}

	units, err := parseQuantity("units", record[3])
	if err != nil {
		return nil, err
	}

	return &entities.HistoricalSale{
		Date:     date,
		StoreID:  entities.StoreID(storeID),
		Category: category,
		Units:    units,
	}, nil
}

func parseQuantity(field, s string) (entities.Quantity, error) {
	q, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", field, s)
	}
	if q < 0 {
		return 0, fmt.Errorf("%s cannot be negative: %d", field, q)
	}
	return entities.Quantity(q), nil
}
