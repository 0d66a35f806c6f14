package csv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStores(t *testing.T) {
	path := writeFile(t, "stores.csv", `store_id,name,size_sqft,income_index,tier,cluster_id
S001,Downtown,20000,1.35,1,C1
S002, Riverside ,9000,0.95,2,C2
`)

	stores, err := NewLoader().LoadStores(path)
	require.NoError(t, err)
	require.Len(t, stores, 2)

	assert.Equal(t, entities.StoreID("S001"), stores[0].ID)
	assert.Equal(t, "Downtown", stores[0].Name)
	assert.Equal(t, int64(20000), stores[0].SizeSqFt)
	assert.True(t, stores[0].IncomeIndex.Equal(decimal.RequireFromString("1.35")))
	assert.Equal(t, 1, stores[0].Tier)
	assert.Equal(t, entities.ClusterID("C1"), stores[0].ClusterID)
	assert.Equal(t, entities.ClusterID("C2"), stores[1].ClusterID)
}

func TestLoadStores_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"header only", "store_id,name,size_sqft,income_index,tier,cluster_id\n", "at least one data row"},
		{"wrong header", "id,name,size,income,tier,cluster\nS1,a,1,1,1,\n", "header mismatch"},
		{"bad size", "store_id,name,size_sqft,income_index,tier,cluster_id\nS1,a,big,1,1,\n", "row 2: invalid size_sqft"},
		{"zero tier", "store_id,name,size_sqft,income_index,tier,cluster_id\nS1,a,100,1,0,\n", "tier must be positive"},
		{"short row", "store_id,name,size_sqft,income_index,tier,cluster_id\nS1,a,100\n", "wrong number of fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadStores(writeFile(t, "stores.csv", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadHistory(t *testing.T) {
	path := writeFile(t, "history.csv", `Date,Store_ID,Category,Units
2024-02-05,S001,outerwear,200
2024-02-12,S001,outerwear,190
`)

	sales, err := NewLoader().LoadHistory(path)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC), sales[1].Date)
	assert.Equal(t, "outerwear", sales[1].Category)
	assert.Equal(t, entities.Quantity(190), sales[1].Units)

	_, err = NewLoader().LoadHistory(writeFile(t, "bad.csv", "date,store_id,category,units\n02/05/2024,S001,outerwear,1\n"))
	assert.ErrorContains(t, err, "invalid date format")

	_, err = NewLoader().LoadHistory(writeFile(t, "neg.csv", "date,store_id,category,units\n2024-02-05,S001,outerwear,-4\n"))
	assert.ErrorContains(t, err, "units cannot be negative")
}

func TestLoadActuals_GroupsByWeek(t *testing.T) {
	path := writeFile(t, "actuals.csv", `week,store_id,units
2,S001,110
1,S001,100
1,S002,80
`)

	weeks, err := NewLoader().LoadActuals(path)
	require.NoError(t, err)
	require.Len(t, weeks, 2)

	assert.Equal(t, entities.Week(1), weeks[0].Week)
	assert.Equal(t, []entities.StoreUnits{{StoreID: "S001", Units: 100}, {StoreID: "S002", Units: 80}}, weeks[0].Units)
	assert.Equal(t, entities.Week(2), weeks[1].Week)
	assert.Equal(t, []entities.StoreUnits{{StoreID: "S001", Units: 110}}, weeks[1].Units)

	_, err = NewLoader().LoadActuals(writeFile(t, "bad.csv", "week,store_id,units\n0,S001,1\n"))
	assert.ErrorContains(t, err, "invalid week")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadStores(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorContains(t, err, "failed to open stores file")
}
