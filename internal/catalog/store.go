// internal/catalog/store.go
package catalog

import "context"

// Store is the persistence capability the catalog service runs on. It
// translates domain queries into store operations and holds no business
// logic. Lookup methods return (nil, nil) when no item matches; storage
// failures propagate unretried.
//
// Implementations must enforce SKU uniqueness themselves (a unique index
// or equivalent): the service's ExistsBySKU check only provides a fast,
// friendly error and cannot guard against concurrent writers.
type Store interface {
	// FindByID returns the item with the given identifier, or nil.
	FindByID(ctx context.Context, id string) (*Item, error)

	// ExistsBySKU reports whether any item carries the given SKU.
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// FindBySKU returns the item with the given SKU, or nil.
	FindBySKU(ctx context.Context, sku string) (*Item, error)

	// Insert stores a new item, assigning its identifier and timestamps.
	Insert(ctx context.Context, item *Item) (*Item, error)

	// Save upserts an item by identifier and refreshes its updated
	// timestamp.
	Save(ctx context.Context, item *Item) (*Item, error)

	// Delete removes the item with the given identifier. Deleting an
	// absent identifier is not an error.
	Delete(ctx context.Context, id string) error

	// Page runs a filtered, sorted, 0-indexed paginated scan and returns
	// the page contents plus the total match count.
	Page(ctx context.Context, filter Filter, sort Sort, page, size int) ([]*Item, int64, error)

	// Available returns every item with status AVAILABLE and stock on
	// hand, newest first.
	Available(ctx context.Context) ([]*Item, error)

	// Count returns the total number of stored items.
	Count(ctx context.Context) (int64, error)
}
