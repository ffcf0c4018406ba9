// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/kodamarket/koda/internal/model"
)

// UserRepository stores marketplace users keyed by auth provider subject.
type UserRepository interface {
	// Upsert inserts the user or refreshes its profile fields; role, ban and payout state are preserved.
	Upsert(ctx context.Context, u *model.User) (*model.User, error)
	// GetByID loads a user by auth subject.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// FindByIdentifier loads a user by subject or email.
	FindByIdentifier(ctx context.Context, ident string) (*model.User, error)
	// Search lists users whose id, email or name contains q.
	Search(ctx context.Context, q string, limit int) ([]model.User, error)
	// SetPayoutAccount stores the seller's connected payout account.
	SetPayoutAccount(ctx context.Context, id, accountID string) error
	// SetOnboardingByAccount updates onboarding state for the owner of accountID.
	SetOnboardingByAccount(ctx context.Context, accountID string, complete bool) error
	// SetBanned toggles the ban flag.
	SetBanned(ctx context.Context, id string, banned bool) error
	// SetRole changes the user's role.
	SetRole(ctx context.Context, id string, role model.Role) error
}
