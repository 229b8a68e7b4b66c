// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// SearchQuery carries the optional filters of a search request. At most
// one of them is evaluated, in the precedence order documented on
// SearchItems; empty or nil fields count as absent.
type SearchQuery struct {
	Query    string
	SKU      string
	Name     string
	Category string
	Status   Status
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Service defines the interface for the catalog service.
type Service interface {
	// CreateItem validates SKU uniqueness, applies quantity and status
	// defaults and persists a new item.
	CreateItem(ctx context.Context, input ItemInput) (*Item, error)

	// GetItem returns the item with the given identifier or a
	// NotFoundError naming it.
	GetItem(ctx context.Context, id string) (*Item, error)

	// GetItemBySKU returns the item with the given SKU or a
	// NotFoundError naming it.
	GetItemBySKU(ctx context.Context, sku string) (*Item, error)

	// UpdateItem replaces the fields of an existing item with the patch,
	// re-checks SKU uniqueness and re-derives the status from quantity.
	UpdateItem(ctx context.Context, id string, patch ItemInput) (*Item, error)

	// DeleteItem removes an item. Deleting an absent identifier is a
	// no-op, not an error.
	DeleteItem(ctx context.Context, id string) error

	// ListItems returns an unfiltered page of the catalog, newest first
	// unless an explicit sort is requested.
	ListItems(ctx context.Context, req PageRequest, sort Sort) (*Page, error)

	// SearchItems evaluates at most one filter from q, by precedence:
	// free-text query, SKU, name, category, status, price range. With no
	// filter present it behaves like ListItems.
	SearchItems(ctx context.Context, q SearchQuery, req PageRequest, sort Sort) (*Page, error)

	// AvailableItems returns every item that is available for purchase,
	// unpaginated.
	AvailableItems(ctx context.Context) ([]*Item, error)

	// ItemCount returns the total number of stored items. Used by the
	// health endpoint to probe the store.
	ItemCount(ctx context.Context) (int64, error)
}
