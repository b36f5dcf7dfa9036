package service

import (
	"context"

	"mesa/pkg/logger"
	"mesa/pkg/models"
)

type menuStore interface {
	ListItems(ctx context.Context) ([]models.MenuItem, error)
}

// CatalogService exposes the menu with live stock classification. An item at
// or below its low-stock threshold is reported in the low-stock set; an item
// with no stock left drops out of the purchasable set entirely.
type CatalogService struct {
	store  menuStore
	logger *logger.Logger
}

func NewCatalogService(store menuStore, logger *logger.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
	}
}

func (s *CatalogService) AvailableItems(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]models.MenuItem, 0, len(items))
	for _, item := range items {
		if item.Purchasable() {
			available = append(available, item)
		}
	}
	return available, nil
}

func (s *CatalogService) LowStockItems(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]models.MenuItem, 0)
	for _, item := range items {
		if item.StockCount > 0 && item.StockCount <= item.LowStockAlert {
			low = append(low, item)
		}
	}
	return low, nil
}

func (s *CatalogService) OutOfStockItems(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.MenuItem, 0)
	for _, item := range items {
		if item.StockCount <= 0 {
			out = append(out, item)
		}
	}
	return out, nil
}
