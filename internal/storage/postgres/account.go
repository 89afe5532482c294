package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foxyglamour/storefront/internal/domain/account"
)

const (
	userColumns = `id, username, email, first_name, last_name, password_hash, created`

	insertUserSQL = `INSERT INTO users (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByUsernameSQL = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
)

var _ account.Repository = (*UserRepository)(nil)

// UserRepository stores customer accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts u, mapping a username conflict to account.ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, u *account.User) error {
	err := r.pool.QueryRow(ctx, insertUserSQL,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
	).Scan(&u.ID, &u.Created)
	if isUniqueViolation(err) {
		return account.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Username, err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*account.User, error) {
	return r.get(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*account.User, error) {
	return r.get(ctx, getUserByUsernameSQL, username)
}

func (r *UserRepository) get(ctx context.Context, sql string, arg any) (*account.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user %v: %w", arg, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (account.User, error) {
		var u account.User
		err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Created)
		return u, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %v: %w", arg, err)
	}
	return &u, nil
}
