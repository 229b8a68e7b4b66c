// internal/catalog/domain.go
package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the stocking state of an item.
type Status string

const (
	StatusAvailable    Status = "AVAILABLE"
	StatusOutOfStock   Status = "OUT_OF_STOCK"
	StatusDiscontinued Status = "DISCONTINUED"
)

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusOutOfStock, StatusDiscontinued:
		return true
	}
	return false
}

// Item represents a purchasable product in the catalog.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InStock reports whether the item has stock on hand.
func (i *Item) InStock() bool {
	return i.Quantity > 0
}

// AvailableForPurchase is derived, never stored: the item must be
// AVAILABLE and have stock on hand.
func (i *Item) AvailableForPurchase() bool {
	return i.Status == StatusAvailable && i.InStock()
}

// ItemInput is the full-replacement document accepted by CreateItem and
// UpdateItem. Absent optional fields overwrite existing values with their
// empty equivalents; Quantity and Status are pointers so the service can
// tell absent from zero-valued.
type ItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    *int
	Category    string
	SKU         string
	ImageURL    string
	Status      *Status
}

// NotFoundError is returned when no item matches the requested key.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item not found: %s", e.Key)
}

// DuplicateSKUError is returned when a create or update would leave two
// items sharing a non-empty SKU.
type DuplicateSKUError struct {
	SKU string
}

func (e *DuplicateSKUError) Error() string {
	return fmt.Sprintf("item with SKU already exists: %s", e.SKU)
}

// FilterKind enumerates the predicates a paginated scan can apply.
// Exactly one filter is active per scan.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterNameContains
	FilterCategoryEquals
	FilterStatusEquals
	FilterPriceBetween
	FilterMultiFieldContains
)

// Filter selects which items a scan returns. Term carries the search term
// for the contains/equals kinds; Status and the price bounds apply to
// their respective kinds only.
type Filter struct {
	Kind     FilterKind
	Term     string
	Status   Status
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

func NoFilter() Filter {
	return Filter{Kind: FilterNone}
}

// NameContains matches items whose name contains term, case-insensitively.
func NameContains(term string) Filter {
	return Filter{Kind: FilterNameContains, Term: term}
}

func CategoryEquals(category string) Filter {
	return Filter{Kind: FilterCategoryEquals, Term: category}
}

func StatusEquals(status Status) Filter {
	return Filter{Kind: FilterStatusEquals, Status: status}
}

// PriceBetween matches items whose price lies in [min, max], inclusive.
func PriceBetween(min, max decimal.Decimal) Filter {
	return Filter{Kind: FilterPriceBetween, MinPrice: min, MaxPrice: max}
}

// MultiFieldContains matches term against name, description, SKU and
// category, case-insensitively, OR-ed together.
func MultiFieldContains(term string) Filter {
	return Filter{Kind: FilterMultiFieldContains, Term: term}
}

// Sort enumerates the orderings a paginated scan supports. SortDefault
// means the caller expressed no preference and newest-first applies.
type Sort int

const (
	SortDefault Sort = iota
	SortPriceAsc
	SortPriceDesc
	SortNameAsc
	SortNameDesc
	SortNewest
)

// PageRequest identifies a 0-indexed page of a result set.
type PageRequest struct {
	Number int
	Size   int
}

// Page is a bounded slice of an ordered result set plus count metadata.
// The JSON shape is what the transport layer serves.
type Page struct {
	Content       []*Item `json:"content"`
	TotalElements int64   `json:"totalElements"`
	TotalPages    int     `json:"totalPages"`
	Size          int     `json:"size"`
	Number        int     `json:"number"`
}

// NewPage assembles a Page from a scan result.
func NewPage(items []*Item, total int64, req PageRequest) *Page {
	if items == nil {
		items = []*Item{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return &Page{
		Content:       items,
		TotalElements: total,
		TotalPages:    pages,
		Size:          req.Size,
		Number:        req.Number,
	}
}
