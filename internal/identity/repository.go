package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// Repository is the document store contract for identities. Create assigns
// the identifier and both timestamps; Update stamps updatedAt.
type Repository interface {
	Create(ctx context.Context, identity Identity) (Identity, error)
	FindByID(ctx context.Context, id string) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
	Update(ctx context.Context, id string, patch Patch) (Identity, error)
}

const uniqueViolation = "23505"

var (
	psql            = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	identityColumns = []string{"id", "email", "name", "phone", "wallet_address", "profile_image", "cover_image", "bio", "password_hash", "created_at", "updated_at"}
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity and returns it with server assigned fields.
func (r *PostgresRepository) Create(ctx context.Context, identity Identity) (Identity, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO users (email, name, phone, wallet_address, profile_image, cover_image, bio, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+strings.Join(identityColumns, ", "),
		identity.Email, identity.Name, identity.Phone, identity.WalletAddress,
		identity.ProfileImage, identity.CoverImage, identity.Bio, identity.PasswordHash)
	created, err := scanIdentity(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Identity{}, fmt.Errorf("email %s: %w", identity.Email, apperr.ErrAlreadyExists)
		}
		return Identity{}, err
	}
	return created, nil
}

// FindByID fetches an identity by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Identity, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return Identity{}, fmt.Errorf("identity %q: %w", id, apperr.ErrNotFound)
	}
	return r.findOne(ctx, sq.Eq{"id": userID})
}

// FindByEmail fetches an identity by its email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Identity, error) {
	return r.findOne(ctx, sq.Eq{"email": email})
}

func (r *PostgresRepository) findOne(ctx context.Context, where sq.Eq) (Identity, error) {
	query, args, err := psql.Select(identityColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return Identity{}, err
	}
	identity, err := scanIdentity(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, apperr.ErrNotFound
	}
	return identity, err
}

// Update applies patch and returns the stored record.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch Patch) (Identity, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return Identity{}, fmt.Errorf("identity %q: %w", id, apperr.ErrNotFound)
	}

	update := psql.Update("users").Set("updated_at", time.Now().UTC()).Where(sq.Eq{"id": userID})
	for column, value := range map[string]*string{
		"name":           patch.Name,
		"phone":          patch.Phone,
		"profile_image":  patch.ProfileImage,
		"cover_image":    patch.CoverImage,
		"bio":            patch.Bio,
		"wallet_address": patch.WalletAddress,
	} {
		if value != nil {
			update = update.Set(column, *value)
		}
	}

	query, args, err := update.Suffix("RETURNING " + strings.Join(identityColumns, ", ")).ToSql()
	if err != nil {
		return Identity{}, err
	}
	identity, err := scanIdentity(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, apperr.ErrNotFound
	}
	return identity, err
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var (
		id                   uuid.UUID
		identity             Identity
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &identity.Email, &identity.Name, &identity.Phone, &identity.WalletAddress,
		&identity.ProfileImage, &identity.CoverImage, &identity.Bio, &identity.PasswordHash,
		&createdAt, &updatedAt); err != nil {
		return Identity{}, err
	}
	identity.ID = id.String()
	identity.CreatedAt = createdAt.UTC()
	identity.UpdatedAt = updatedAt.UTC()
	return identity, nil
}
