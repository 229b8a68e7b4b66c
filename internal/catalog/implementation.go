// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DefaultPageSize is used when a page request carries no usable size.
const DefaultPageSize = 20

// service implements the Service interface.
type service struct {
	store       Store
	logger      *zap.Logger
	maxPageSize int
}

// NewService creates a new catalog service instance. Page sizes above
// maxPageSize are clamped; pass 0 to fall back to 100.
func NewService(store Store, logger *zap.Logger, maxPageSize int) Service {
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &service{
		store:       store,
		logger:      logger,
		maxPageSize: maxPageSize,
	}
}

// CreateItem creates a new item in the catalog.
func (s *service) CreateItem(ctx context.Context, input ItemInput) (*Item, error) {
	s.logger.Info("creating item", zap.String("name", input.Name))

	if input.SKU != "" {
		exists, err := s.store.ExistsBySKU(ctx, input.SKU)
		if err != nil {
			return nil, fmt.Errorf("checking sku existence: %w", err)
		}
		if exists {
			s.logger.Warn("duplicate sku on create", zap.String("sku", input.SKU))
			return nil, &DuplicateSKUError{SKU: input.SKU}
		}
	}

	quantity := 0
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	status := StatusAvailable
	if input.Status != nil {
		status = *input.Status
	}
	// Zero quantity always wins over a supplied status.
	if quantity == 0 {
		status = StatusOutOfStock
	}

	item := &Item{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Quantity:    quantity,
		Category:    input.Category,
		SKU:         input.SKU,
		ImageURL:    input.ImageURL,
		Status:      status,
	}

	created, err := s.store.Insert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("inserting item: %w", err)
	}

	s.logger.Info("item created", zap.String("id", created.ID))
	return created, nil
}

// GetItem retrieves an item by its identifier.
func (s *service) GetItem(ctx context.Context, id string) (*Item, error) {
	item, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding item by id: %w", err)
	}
	if item == nil {
		s.logger.Debug("item not found", zap.String("id", id))
		return nil, &NotFoundError{Key: id}
	}
	return item, nil
}

// GetItemBySKU retrieves an item by its SKU.
func (s *service) GetItemBySKU(ctx context.Context, sku string) (*Item, error) {
	item, err := s.store.FindBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("finding item by sku: %w", err)
	}
	if item == nil {
		s.logger.Debug("item not found by sku", zap.String("sku", sku))
		return nil, &NotFoundError{Key: sku}
	}
	return item, nil
}

// UpdateItem replaces an existing item's fields with the patch document
// and re-derives the status. The patch is a full replacement: absent
// optional fields clear their counterparts.
func (s *service) UpdateItem(ctx context.Context, id string, patch ItemInput) (*Item, error) {
	s.logger.Info("updating item", zap.String("id", id))

	existing, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.SKU != "" && patch.SKU != existing.SKU {
		exists, err := s.store.ExistsBySKU(ctx, patch.SKU)
		if err != nil {
			return nil, fmt.Errorf("checking sku existence: %w", err)
		}
		if exists {
			s.logger.Warn("duplicate sku on update", zap.String("sku", patch.SKU))
			return nil, &DuplicateSKUError{SKU: patch.SKU}
		}
	}

	existing.Name = patch.Name
	existing.Description = patch.Description
	existing.Price = patch.Price
	existing.Category = patch.Category
	existing.SKU = patch.SKU
	existing.ImageURL = patch.ImageURL

	if patch.Quantity != nil {
		existing.Quantity = *patch.Quantity

		// Rule order matters: a zero quantity forces OUT_OF_STOCK and a
		// restock flips OUT_OF_STOCK back to AVAILABLE, both ahead of
		// any status the patch carries.
		switch {
		case *patch.Quantity == 0:
			existing.Status = StatusOutOfStock
		case existing.Status == StatusOutOfStock:
			existing.Status = StatusAvailable
		case patch.Status != nil:
			existing.Status = *patch.Status
		}
	} else {
		existing.Quantity = 0
	}

	updated, err := s.store.Save(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}

	s.logger.Info("item updated", zap.String("id", updated.ID))
	return updated, nil
}

// DeleteItem deletes an item by identifier. The operation is idempotent:
// deleting an absent identifier does nothing.
func (s *service) DeleteItem(ctx context.Context, id string) error {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("finding item by id: %w", err)
	}
	if existing == nil {
		s.logger.Warn("delete of absent item", zap.String("id", id))
		return nil
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	s.logger.Info("item deleted", zap.String("id", id))
	return nil
}

// ListItems returns an unfiltered page of the catalog.
func (s *service) ListItems(ctx context.Context, req PageRequest, sort Sort) (*Page, error) {
	req = s.clampPage(req)

	items, total, err := s.store.Page(ctx, NoFilter(), sort, req.Number, req.Size)
	if err != nil {
		return nil, fmt.Errorf("paging items: %w", err)
	}
	return NewPage(items, total, req), nil
}

// SearchItems evaluates at most one filter from q. Supplying several is
// not an AND: the highest-precedence one wins and the rest are ignored.
func (s *service) SearchItems(ctx context.Context, q SearchQuery, req PageRequest, sort Sort) (*Page, error) {
	req = s.clampPage(req)

	var filter Filter
	switch {
	case q.Query != "":
		filter = MultiFieldContains(q.Query)
	case q.SKU != "":
		item, err := s.GetItemBySKU(ctx, q.SKU)
		if err != nil {
			return nil, err
		}
		return NewPage([]*Item{item}, 1, PageRequest{Number: 0, Size: req.Size}), nil
	case q.Name != "":
		filter = NameContains(q.Name)
	case q.Category != "":
		filter = CategoryEquals(q.Category)
	case q.Status != "":
		filter = StatusEquals(q.Status)
	case q.MinPrice != nil && q.MaxPrice != nil:
		filter = PriceBetween(*q.MinPrice, *q.MaxPrice)
	default:
		return s.ListItems(ctx, req, sort)
	}

	items, total, err := s.store.Page(ctx, filter, sort, req.Number, req.Size)
	if err != nil {
		return nil, fmt.Errorf("paging items: %w", err)
	}
	return NewPage(items, total, req), nil
}

// AvailableItems returns every item available for purchase.
func (s *service) AvailableItems(ctx context.Context) ([]*Item, error) {
	items, err := s.store.Available(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing available items: %w", err)
	}
	return items, nil
}

// ItemCount returns the number of stored items.
func (s *service) ItemCount(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// clampPage normalizes a page request: negative page numbers become 0,
// sizes fall back to DefaultPageSize and are capped at maxPageSize so a
// single request cannot drag the whole catalog over the wire.
func (s *service) clampPage(req PageRequest) PageRequest {
	if req.Number < 0 {
		req.Number = 0
	}
	if req.Size <= 0 {
		req.Size = DefaultPageSize
	}
	if req.Size > s.maxPageSize {
		req.Size = s.maxPageSize
	}
	return req
}
