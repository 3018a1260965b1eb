package recall

import (
	"context"

	"github.com/google/uuid"
)

// GroupRepository defines the persistence interface for recall groups.
// Lookups are always scoped to a practice.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	GetForPractice(ctx context.Context, id, practiceID uuid.UUID) (*Group, error)
	ListByPractice(ctx context.Context, practiceID uuid.UUID) ([]*Group, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PatientRepository defines the persistence interface for recall patients.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*Patient, error)
	GetForPractice(ctx context.Context, id, practiceID uuid.UUID) (*Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByGroup(ctx context.Context, groupID uuid.UUID) (int64, error)
}
