package repositories

import "github.com/vsinha/seasonplan/pkg/domain/entities"

// HistoryRepository provides prior-period sales by category
type HistoryRepository interface {
	GetSales(category string) ([]*entities.HistoricalSale, error)
	LoadSales(sales []*entities.HistoricalSale) error
}
