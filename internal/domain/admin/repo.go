package admin

import (
	"context"

	"github.com/google/uuid"
)

// AdminRepository defines the persistence interface for admins.
type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	GetByID(ctx context.Context, id string) (*Admin, error)
}

// PracticeRepository defines the persistence interface for practices.
type PracticeRepository interface {
	Create(ctx context.Context, p *Practice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practice, error)
	GetByAdminID(ctx context.Context, adminID string) (*Practice, error)
}
