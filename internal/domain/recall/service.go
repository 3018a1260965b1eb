package recall

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/domain/admin"
	"github.com/wahealthh/recall-product-backend/internal/platform/db"
)

// PracticeResolver finds the practice owned by an admin. *admin.Service
// satisfies it; a miss is admin.ErrPracticeNotFound.
type PracticeResolver interface {
	PracticeForAdmin(ctx context.Context, adminID string) (*admin.Practice, error)
}

type Service struct {
	groups    GroupRepository
	patients  PatientRepository
	practices PracticeResolver
	tx        db.TxBeginner
	logger    zerolog.Logger
}

func NewService(groups GroupRepository, patients PatientRepository, practices PracticeResolver, tx db.TxBeginner, logger zerolog.Logger) *Service {
	return &Service{
		groups:    groups,
		patients:  patients,
		practices: practices,
		tx:        tx,
		logger:    logger,
	}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.tx, fn)
}

func (s *Service) practiceID(ctx context.Context, adminID string) (uuid.UUID, error) {
	p, err := s.practices.PracticeForAdmin(ctx, adminID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// ownedGroup returns the group only when it belongs to the admin's
// practice. Absent and foreign groups are both ErrGroupNotFound.
func (s *Service) ownedGroup(ctx context.Context, adminID, groupID string) (*Group, error) {
	practiceID, err := s.practiceID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(groupID)
	if err != nil {
		return nil, ErrGroupNotFound
	}
	return s.groups.GetForPractice(ctx, id, practiceID)
}

// -- Groups --

func (s *Service) CreateGroup(ctx context.Context, adminID string, req CreateGroupRequest) (*Group, error) {
	practiceID, err := s.practiceID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	g := &Group{Name: req.Name, Description: req.Description, PracticeID: practiceID}
	if err := s.inTx(ctx, func(ctx context.Context) error {
		return s.groups.Create(ctx, g)
	}); err != nil {
		return nil, fmt.Errorf("create recall group: %w", err)
	}
	return g, nil
}

func (s *Service) ListGroups(ctx context.Context, adminID string) ([]*Group, error) {
	practiceID, err := s.practiceID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return s.groups.ListByPractice(ctx, practiceID)
}

// GetGroup returns an owned group with its patients in insertion order.
func (s *Service) GetGroup(ctx context.Context, adminID, groupID string) (*GroupWithPatients, error) {
	g, err := s.ownedGroup(ctx, adminID, groupID)
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.ListByGroup(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("list recall patients: %w", err)
	}
	return &GroupWithPatients{Group: g, Patients: patients}, nil
}

// DeleteGroup removes the group and all of its patients in one commit.
func (s *Service) DeleteGroup(ctx context.Context, adminID, groupID string) (*Group, error) {
	g, err := s.ownedGroup(ctx, adminID, groupID)
	if err != nil {
		return nil, err
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		n, err := s.patients.DeleteByGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		s.logger.Debug().Str("group_id", g.ID.String()).Int64("patients", n).Msg("deleting recall group")
		return s.groups.Delete(ctx, g.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("delete recall group: %w", err)
	}
	return g, nil
}

// -- Patients --

// AddPatients inserts each patient in its own commit unit so one bad row
// does not undo the others.
func (s *Service) AddPatients(ctx context.Context, adminID, groupID string, inputs []PatientInput) (*BatchResult, error) {
	g, err := s.ownedGroup(ctx, adminID, groupID)
	if err != nil {
		return nil, err
	}

	res := &BatchResult{Patients: []*Patient{}, Errors: []PatientError{}}
	for _, in := range inputs {
		p := in.toPatient(g.ID)
		err := s.inTx(ctx, func(ctx context.Context) error {
			return s.patients.Create(ctx, p)
		})
		if err != nil {
			res.FailedCount++
			res.Errors = append(res.Errors, PatientError{Patient: in.DisplayName(), Error: err.Error()})
			continue
		}
		res.SuccessCount++
		res.Patients = append(res.Patients, p)
	}
	return res, nil
}

func (s *Service) AddPatient(ctx context.Context, adminID, groupID string, in PatientInput) (*Patient, error) {
	g, err := s.ownedGroup(ctx, adminID, groupID)
	if err != nil {
		return nil, err
	}
	p := in.toPatient(g.ID)
	if err := s.inTx(ctx, func(ctx context.Context) error {
		return s.patients.Create(ctx, p)
	}); err != nil {
		return nil, fmt.Errorf("add patient to group: %w", err)
	}
	return p, nil
}

// ImportCSV parses content and commits every valid row in one unit. Row
// errors are reported alongside the imported count.
func (s *Service) ImportCSV(ctx context.Context, adminID, groupID, content string) (*ImportResult, error) {
	g, err := s.ownedGroup(ctx, adminID, groupID)
	if err != nil {
		return nil, err
	}

	inputs, rowErrs, err := ParsePatientsCSV(content)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		for _, in := range inputs {
			if err := s.patients.Create(ctx, in.toPatient(g.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import patients: %w", err)
	}

	res := &ImportResult{ImportedCount: len(inputs)}
	if len(rowErrs) == 0 {
		res.Message = fmt.Sprintf("Successfully imported %d patients", len(inputs))
	} else {
		res.Message = fmt.Sprintf("Imported %d patients with %d errors", len(inputs), len(rowErrs))
		res.Errors = rowErrs
	}
	return res, nil
}

// DeletePatient removes a patient whose group belongs to the admin's
// practice.
func (s *Service) DeletePatient(ctx context.Context, adminID, patientID string) (*Patient, error) {
	practiceID, err := s.practiceID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(patientID)
	if err != nil {
		return nil, ErrPatientNotFound
	}
	p, err := s.patients.GetForPractice(ctx, id, practiceID)
	if err != nil {
		return nil, err
	}
	if err := s.inTx(ctx, func(ctx context.Context) error {
		return s.patients.Delete(ctx, p.ID)
	}); err != nil {
		return nil, fmt.Errorf("delete patient: %w", err)
	}
	return p, nil
}
