package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// Repository is the document store contract for items. Create assigns the
// identifier and creation time. List with ordered set asks the store for
// newest-first order, which is the compound query that may be unavailable.
type Repository interface {
	Create(ctx context.Context, item Item) (Item, error)
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, scope Scope, ordered bool) ([]Item, error)
	Update(ctx context.Context, id string, patch Patch) (Item, error)
}

var (
	psql        = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	itemColumns = []string{"id", "title", "description", "price", "category", "creator_id", "owner_id", "image_url", "audio_url", "mint_address", "created_at"}
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed item repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new item and returns it with server assigned fields.
func (r *PostgresRepository) Create(ctx context.Context, item Item) (Item, error) {
	query, args, err := psql.Insert("nfts").
		Columns("title", "description", "price", "category", "creator_id", "owner_id", "image_url", "audio_url", "mint_address").
		Values(item.Title, item.Description, item.Price, item.Category, item.CreatorID, item.OwnerID, item.ImageURL, item.AudioURL, item.MintAddress).
		Suffix("RETURNING " + strings.Join(itemColumns, ", ")).
		ToSql()
	if err != nil {
		return Item{}, err
	}
	return scanItem(r.db.QueryRow(ctx, query, args...))
}

// Get fetches an item by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Item, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", id, apperr.ErrNotFound)
	}
	query, args, err := psql.Select(itemColumns...).From("nfts").Where(sq.Eq{"id": itemID}).ToSql()
	if err != nil {
		return Item{}, err
	}
	item, err := scanItem(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, apperr.ErrNotFound
	}
	return item, err
}

// List returns the items in scope.
func (r *PostgresRepository) List(ctx context.Context, scope Scope, ordered bool) ([]Item, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	builder := psql.Select(itemColumns...).From("nfts")
	switch scope.Kind {
	case ScopeCategory:
		builder = builder.Where(sq.Eq{"category": scope.Value})
	case ScopeOwner, ScopeCreator:
		identityID, err := uuid.Parse(scope.Value)
		if err != nil {
			return []Item{}, nil
		}
		column := "owner_id"
		if scope.Kind == ScopeCreator {
			column = "creator_id"
		}
		builder = builder.Where(sq.Eq{column: identityID})
	}
	if ordered {
		builder = builder.OrderBy("created_at DESC", "id ASC")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update applies patch and returns the stored record.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch Patch) (Item, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", id, apperr.ErrNotFound)
	}
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	update := psql.Update("nfts").Where(sq.Eq{"id": itemID})
	if patch.Title != nil {
		update = update.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		update = update.Set("description", *patch.Description)
	}
	if patch.Price != nil {
		update = update.Set("price", *patch.Price)
	}
	if patch.Category != nil {
		update = update.Set("category", *patch.Category)
	}
	if patch.MintAddress != nil {
		update = update.Set("mint_address", *patch.MintAddress)
	}
	if patch.OwnerID != nil {
		update = update.Set("owner_id", *patch.OwnerID)
	}

	query, args, err := update.Suffix("RETURNING " + strings.Join(itemColumns, ", ")).ToSql()
	if err != nil {
		return Item{}, err
	}
	item, err := scanItem(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, apperr.ErrNotFound
	}
	return item, err
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		id, creatorID, ownerID uuid.UUID
		item                   Item
		createdAt              time.Time
	)
	if err := row.Scan(&id, &item.Title, &item.Description, &item.Price, &item.Category,
		&creatorID, &ownerID, &item.ImageURL, &item.AudioURL, &item.MintAddress, &createdAt); err != nil {
		return Item{}, err
	}
	item.ID = id.String()
	item.CreatorID = creatorID.String()
	item.OwnerID = ownerID.String()
	item.CreatedAt = createdAt.UTC()
	return item, nil
}
