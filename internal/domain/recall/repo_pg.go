package recall

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wahealthh/recall-product-backend/internal/platform/db"
)

// -- Group Repository --

const groupColumns = `id, name, description, practice_id, created_at, updated_at`

type groupRepoPG struct {
	q db.Querier
}

func NewGroupRepo(q db.Querier) GroupRepository {
	return &groupRepoPG{q: q}
}

func (r *groupRepoPG) Create(ctx context.Context, g *Group) error {
	g.ID = uuid.New()
	return db.Conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO recall_groups (id, name, description, practice_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		g.ID, g.Name, g.Description, g.PracticeID,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

func (r *groupRepoPG) GetForPractice(ctx context.Context, id, practiceID uuid.UUID) (*Group, error) {
	var g Group
	err := db.Conn(ctx, r.q).QueryRow(ctx,
		`SELECT `+groupColumns+` FROM recall_groups WHERE id = $1 AND practice_id = $2`,
		id, practiceID,
	).Scan(&g.ID, &g.Name, &g.Description, &g.PracticeID, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupRepoPG) ListByPractice(ctx context.Context, practiceID uuid.UUID) ([]*Group, error) {
	rows, err := db.Conn(ctx, r.q).Query(ctx,
		`SELECT `+groupColumns+` FROM recall_groups WHERE practice_id = $1 ORDER BY created_at, id`,
		practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []*Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.PracticeID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (r *groupRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx, `DELETE FROM recall_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// -- Patient Repository --

const patientColumns = `p.id, p.first_name, p.last_name, p.email, p.number, p.dob, p.notes,
	p.recall_group_id, p.created_at, p.updated_at`

type patientRepoPG struct {
	q db.Querier
}

func NewPatientRepo(q db.Querier) PatientRepository {
	return &patientRepoPG{q: q}
}

// Create stamps rows with clock_timestamp so patients inserted in one
// transaction keep their insertion order.
func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return db.Conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO recall_patients (
			id, first_name, last_name, email, number, dob, notes,
			recall_group_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Number, p.DOB, p.Notes, p.RecallGroupID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*Patient, error) {
	rows, err := db.Conn(ctx, r.q).Query(ctx,
		`SELECT `+patientColumns+` FROM recall_patients p
		WHERE p.recall_group_id = $1 ORDER BY p.created_at, p.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) GetForPractice(ctx context.Context, id, practiceID uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.q).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM recall_patients p
		JOIN recall_groups g ON g.id = p.recall_group_id
		WHERE p.id = $1 AND g.practice_id = $2`, id, practiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx, `DELETE FROM recall_patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *patientRepoPG) DeleteByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	tag, err := db.Conn(ctx, r.q).Exec(ctx, `DELETE FROM recall_patients WHERE recall_group_id = $1`, groupID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Number, &p.DOB, &p.Notes,
		&p.RecallGroupID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
