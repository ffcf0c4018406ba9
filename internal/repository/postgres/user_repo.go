package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, COALESCE(email,''), first_name, last_name, username, image_url, role, banned, payout_account_id, onboarding_complete, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Username, &u.ImageURL,
		&role, &u.Banned, &u.PayoutAccountID, &u.OnboardingComplete, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// Upsert inserts the user or refreshes profile fields from the auth provider.
func (r *UserRepo) Upsert(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
INSERT INTO users (id, email, first_name, last_name, username, image_url)
VALUES ($1, NULLIF($2,''), $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  email = COALESCE(EXCLUDED.email, users.email),
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  username = EXCLUDED.username,
  image_url = EXCLUDED.image_url,
  updated_at = now()
RETURNING ` + userCols
	out, err := scanUser(r.db.Pool.QueryRow(ctx, q, u.ID, u.Email, u.FirstName, u.LastName, u.Username, u.ImageURL))
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	return out, err
}

// GetByID selects a user by auth subject.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// FindByIdentifier selects a user by subject or email.
func (r *UserRepo) FindByIdentifier(ctx context.Context, ident string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1 OR email=$1 LIMIT 1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, ident))
}

// Search lists users matching q in id, email or names.
func (r *UserRepo) Search(ctx context.Context, q string, limit int) ([]model.User, error) {
	const sel = `
SELECT ` + userCols + ` FROM users
WHERE $1 = '' OR id ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
   OR username ILIKE '%' || $1 || '%' OR (first_name || ' ' || last_name) ILIKE '%' || $1 || '%'
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, sel, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SetPayoutAccount stores the connected account id.
func (r *UserRepo) SetPayoutAccount(ctx context.Context, id, accountID string) error {
	const q = `UPDATE users SET payout_account_id=$2, updated_at=now() WHERE id=$1`
	return r.execOne(ctx, q, id, accountID)
}

// SetOnboardingByAccount updates onboarding state for the account owner.
func (r *UserRepo) SetOnboardingByAccount(ctx context.Context, accountID string, complete bool) error {
	const q = `UPDATE users SET onboarding_complete=$2, updated_at=now() WHERE payout_account_id=$1 AND payout_account_id <> ''`
	return r.execOne(ctx, q, accountID, complete)
}

// SetBanned toggles the ban flag.
func (r *UserRepo) SetBanned(ctx context.Context, id string, banned bool) error {
	const q = `UPDATE users SET banned=$2, updated_at=now() WHERE id=$1`
	return r.execOne(ctx, q, id, banned)
}

// SetRole changes the role.
func (r *UserRepo) SetRole(ctx context.Context, id string, role model.Role) error {
	const q = `UPDATE users SET role=$2, updated_at=now() WHERE id=$1`
	return r.execOne(ctx, q, id, string(role))
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
