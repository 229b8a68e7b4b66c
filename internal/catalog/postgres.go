// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// schema creates the items table. The partial unique index on sku is the
// authoritative guard for SKU uniqueness: the service-level existence
// check can race against concurrent writers, the index cannot.
const schema = `
CREATE TABLE IF NOT EXISTS items (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       NUMERIC(12,2) NOT NULL,
	quantity    INTEGER NOT NULL DEFAULT 0,
	category    TEXT NOT NULL DEFAULT '',
	sku         TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_sku ON items (sku) WHERE sku <> '';
`

const itemColumns = `id, name, description, price, quantity, category, sku, image_url, status, created_at, updated_at`

// PostgresStore implements Store on top of a PostgreSQL items table.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("stockpile/catalog"),
	}
}

// Migrate creates the items table and its indexes if missing.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// FindByID returns the item with the given identifier, or nil.
func (ps *PostgresStore) FindByID(ctx context.Context, id string) (*Item, error) {
	ctx, span := ps.tracer.Start(ctx, "store.find_by_id",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	row := ps.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	return scanItem(row)
}

// ExistsBySKU reports whether any item carries the given SKU.
func (ps *PostgresStore) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	ctx, span := ps.tracer.Start(ctx, "store.exists_by_sku",
		trace.WithAttributes(attribute.String("item.sku", sku)),
	)
	defer span.End()

	var exists bool
	err := ps.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE sku = $1)`, sku).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking sku: %w", err)
	}
	return exists, nil
}

// FindBySKU returns the item with the given SKU, or nil.
func (ps *PostgresStore) FindBySKU(ctx context.Context, sku string) (*Item, error) {
	ctx, span := ps.tracer.Start(ctx, "store.find_by_sku",
		trace.WithAttributes(attribute.String("item.sku", sku)),
	)
	defer span.End()

	row := ps.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku)
	return scanItem(row)
}

// Insert stores a new item, assigning its identifier and timestamps.
func (ps *PostgresStore) Insert(ctx context.Context, item *Item) (*Item, error) {
	ctx, span := ps.tracer.Start(ctx, "store.insert",
		trace.WithAttributes(attribute.String("item.name", item.Name)),
	)
	defer span.End()

	now := time.Now().UTC()
	stored := *item
	stored.ID = uuid.New().String()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	_, err := ps.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		stored.ID, stored.Name, stored.Description, stored.Price, stored.Quantity,
		stored.Category, stored.SKU, stored.ImageURL, string(stored.Status),
		stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, mapUniqueViolation(err, stored.SKU, "inserting item")
	}
	return &stored, nil
}

// Save upserts an item by identifier, refreshing updated_at and keeping
// the original created_at on conflict.
func (ps *PostgresStore) Save(ctx context.Context, item *Item) (*Item, error) {
	ctx, span := ps.tracer.Start(ctx, "store.save",
		trace.WithAttributes(attribute.String("item.id", item.ID)),
	)
	defer span.End()

	stored := *item
	stored.UpdatedAt = time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}

	_, err := ps.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity,
			category = EXCLUDED.category,
			sku = EXCLUDED.sku,
			image_url = EXCLUDED.image_url,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		stored.ID, stored.Name, stored.Description, stored.Price, stored.Quantity,
		stored.Category, stored.SKU, stored.ImageURL, string(stored.Status),
		stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, mapUniqueViolation(err, stored.SKU, "saving item")
	}
	return &stored, nil
}

// Delete removes an item by identifier.
func (ps *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, span := ps.tracer.Start(ctx, "store.delete",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	if _, err := ps.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// Page runs a filtered, sorted, paginated scan plus a count with the same
// predicate.
func (ps *PostgresStore) Page(ctx context.Context, filter Filter, sort Sort, page, size int) ([]*Item, int64, error) {
	ctx, span := ps.tracer.Start(ctx, "store.page",
		trace.WithAttributes(
			attribute.Int("filter.kind", int(filter.Kind)),
			attribute.Int("page.number", page),
			attribute.Int("page.size", size),
		),
	)
	defer span.End()

	where, args := filterClause(filter)

	var total int64
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+itemColumns+` FROM items%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		where, orderClause(sort), len(args)+1, len(args)+2)
	args = append(args, size, page*size)

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("paging items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Available returns items with status AVAILABLE and stock on hand.
func (ps *PostgresStore) Available(ctx context.Context) ([]*Item, error) {
	ctx, span := ps.tracer.Start(ctx, "store.available")
	defer span.End()

	rows, err := ps.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE status = $1 AND quantity > 0
		 ORDER BY created_at DESC`, string(StatusAvailable))
	if err != nil {
		return nil, fmt.Errorf("listing available items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// Count returns the total number of stored items.
func (ps *PostgresStore) Count(ctx context.Context) (int64, error) {
	ctx, span := ps.tracer.Start(ctx, "store.count")
	defer span.End()

	var total int64
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return total, nil
}

// filterClause renders a Filter as a WHERE clause with $n placeholders.
func filterClause(filter Filter) (string, []interface{}) {
	switch filter.Kind {
	case FilterNameContains:
		return ` WHERE name ILIKE $1`, []interface{}{"%" + filter.Term + "%"}
	case FilterCategoryEquals:
		return ` WHERE category = $1`, []interface{}{filter.Term}
	case FilterStatusEquals:
		return ` WHERE status = $1`, []interface{}{string(filter.Status)}
	case FilterPriceBetween:
		return ` WHERE price >= $1 AND price <= $2`, []interface{}{filter.MinPrice, filter.MaxPrice}
	case FilterMultiFieldContains:
		return ` WHERE (name ILIKE $1 OR description ILIKE $1 OR sku ILIKE $1 OR category ILIKE $1)`,
			[]interface{}{"%" + filter.Term + "%"}
	default:
		return ``, nil
	}
}

// orderClause renders a Sort as an ORDER BY body. created_at breaks ties
// so pages stay stable across requests.
func orderClause(sort Sort) string {
	switch sort {
	case SortPriceAsc:
		return `price ASC, created_at DESC`
	case SortPriceDesc:
		return `price DESC, created_at DESC`
	case SortNameAsc:
		return `name ASC, created_at DESC`
	case SortNameDesc:
		return `name DESC, created_at DESC`
	default:
		return `created_at DESC, id`
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	item := &Item{}
	var status string
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.Quantity,
		&item.Category,
		&item.SKU,
		&item.ImageURL,
		&status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	item.Status = Status(status)
	return item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// mapUniqueViolation converts a violation of the sku unique index into a
// DuplicateSKUError so concurrent writers losing the race get the same
// error as ones caught by the existence check.
func mapUniqueViolation(err error, sku, op string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return &DuplicateSKUError{SKU: sku}
	}
	return fmt.Errorf("%s: %w", op, err)
}
