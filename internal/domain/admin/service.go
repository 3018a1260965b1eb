package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/platform/auth"
	"github.com/wahealthh/recall-product-backend/internal/platform/db"
)

// Registrar creates users in the external auth service.
type Registrar interface {
	Register(ctx context.Context, r auth.RegisterRequest) (*auth.Registration, error)
}

type Service struct {
	admins    AdminRepository
	practices PracticeRepository
	registrar Registrar
	tx        db.TxBeginner
	logger    zerolog.Logger
}

func NewService(admins AdminRepository, practices PracticeRepository, registrar Registrar, tx db.TxBeginner, logger zerolog.Logger) *Service {
	return &Service{
		admins:    admins,
		practices: practices,
		registrar: registrar,
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

// RegisterAdmin creates the auth-service user first and then the local
// admin row keyed by the returned id. Errors from the auth service are
// returned untouched. A local failure comes back as *AdminRecordError;
// the remote user is left in place.
func (s *Service) RegisterAdmin(ctx context.Context, req RegisterAdminRequest) (*RegisterAdminResult, error) {
	reg, err := s.registrar.Register(ctx, auth.RegisterRequest{
		Name:      strings.TrimSpace(req.FirstName + " " + req.LastName),
		Email:     req.Email,
		Password1: req.Password1,
		Password2: req.Password2,
		Role:      "admin",
	})
	if err != nil {
		return nil, err
	}

	a := &Admin{ID: reg.UserID, FirstName: req.FirstName, LastName: req.LastName}
	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.admins.Create(ctx, a)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("admin_id", reg.UserID).
			Msg("auth user created but local admin insert failed")
		return nil, &AdminRecordError{UserID: reg.UserID, Err: err}
	}

	return &RegisterAdminResult{
		ID:          reg.UserID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Message:     "Admin registration successful",
		AccessToken: reg.AccessToken,
		TokenType:   "bearer",
	}, nil
}

func (s *Service) GetAdmin(ctx context.Context, id string) (*Admin, error) {
	return s.admins.GetByID(ctx, id)
}

// Profile returns the admin and their practice. The practice is nil when
// the admin has not registered one yet.
func (s *Service) Profile(ctx context.Context, adminID string) (*Admin, *Practice, error) {
	a, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.practices.GetByAdminID(ctx, adminID)
	if errors.Is(err, ErrPracticeNotFound) {
		return a, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return a, p, nil
}

// RegisterPractice creates the single practice owned by adminID.
func (s *Service) RegisterPractice(ctx context.Context, adminID string, req CreatePracticeRequest) (*Practice, error) {
	p := &Practice{
		PracticeName:        req.PracticeName,
		PracticeEmail:       strings.TrimSpace(req.PracticeEmail),
		PracticePhoneNumber: req.PracticePhoneNumber,
		PracticeAddress:     req.PracticeAddress,
		AdminID:             adminID,
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.admins.GetByID(ctx, adminID); err != nil {
			return err
		}
		if _, err := s.practices.GetByAdminID(ctx, adminID); err == nil {
			return ErrAdminHasPractice
		} else if !errors.Is(err, ErrPracticeNotFound) {
			return err
		}
		return s.practices.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PracticeForAdmin resolves the practice owned by the calling admin.
func (s *Service) PracticeForAdmin(ctx context.Context, adminID string) (*Practice, error) {
	if adminID == "" {
		return nil, ErrPracticeNotFound
	}
	return s.practices.GetByAdminID(ctx, adminID)
}
