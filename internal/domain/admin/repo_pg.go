package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wahealthh/recall-product-backend/internal/platform/db"
)

// -- Admin Repository --

type adminRepoPG struct {
	q db.Querier
}

func NewAdminRepo(q db.Querier) AdminRepository {
	return &adminRepoPG{q: q}
}

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	return db.Conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO admins (id, first_name, last_name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		a.ID, a.FirstName, a.LastName,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *adminRepoPG) GetByID(ctx context.Context, id string) (*Admin, error) {
	var a Admin
	err := db.Conn(ctx, r.q).QueryRow(ctx, `
		SELECT id, first_name, last_name, created_at, updated_at
		FROM admins WHERE id = $1`, id,
	).Scan(&a.ID, &a.FirstName, &a.LastName, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// -- Practice Repository --

const practiceColumns = `id, practice_name, practice_email, practice_phone_number,
	practice_address, admin_id, created_at, updated_at`

type practiceRepoPG struct {
	q db.Querier
}

func NewPracticeRepo(q db.Querier) PracticeRepository {
	return &practiceRepoPG{q: q}
}

func (r *practiceRepoPG) Create(ctx context.Context, p *Practice) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO practices (
			id, practice_name, practice_email, practice_phone_number,
			practice_address, admin_id
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		p.ID, p.PracticeName, p.PracticeEmail, p.PracticePhoneNumber,
		p.PracticeAddress, p.AdminID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	switch {
	case db.IsUniqueViolation(err, "practices_practice_email_key"):
		return ErrDuplicatePracticeEmail
	case db.IsUniqueViolation(err, "practices_admin_id_key"):
		return ErrAdminHasPractice
	}
	return err
}

func (r *practiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practice, error) {
	return scanPractice(db.Conn(ctx, r.q).QueryRow(ctx,
		`SELECT `+practiceColumns+` FROM practices WHERE id = $1`, id))
}

func (r *practiceRepoPG) GetByAdminID(ctx context.Context, adminID string) (*Practice, error) {
	return scanPractice(db.Conn(ctx, r.q).QueryRow(ctx,
		`SELECT `+practiceColumns+` FROM practices WHERE admin_id = $1`, adminID))
}

func scanPractice(row pgx.Row) (*Practice, error) {
	var p Practice
	err := row.Scan(&p.ID, &p.PracticeName, &p.PracticeEmail, &p.PracticePhoneNumber,
		&p.PracticeAddress, &p.AdminID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPracticeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
