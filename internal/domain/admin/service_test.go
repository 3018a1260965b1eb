package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/platform/auth"
)

// -- Mock Repositories --

type mockAdminRepo struct {
	admins    map[string]*Admin
	createErr error
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{admins: make(map[string]*Admin)}
}

func (m *mockAdminRepo) Create(_ context.Context, a *Admin) error {
	if m.createErr != nil {
		return m.createErr
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.admins[a.ID] = a
	return nil
}

func (m *mockAdminRepo) GetByID(_ context.Context, id string) (*Admin, error) {
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrAdminNotFound
	}
	return a, nil
}

type mockPracticeRepo struct {
	practices map[uuid.UUID]*Practice
}

func newMockPracticeRepo() *mockPracticeRepo {
	return &mockPracticeRepo{practices: make(map[uuid.UUID]*Practice)}
}

func (m *mockPracticeRepo) Create(_ context.Context, p *Practice) error {
	for _, existing := range m.practices {
		if existing.PracticeEmail == p.PracticeEmail {
			return ErrDuplicatePracticeEmail
		}
		if existing.AdminID == p.AdminID {
			return ErrAdminHasPractice
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.practices[p.ID] = p
	return nil
}

func (m *mockPracticeRepo) GetByID(_ context.Context, id uuid.UUID) (*Practice, error) {
	p, ok := m.practices[id]
	if !ok {
		return nil, ErrPracticeNotFound
	}
	return p, nil
}

func (m *mockPracticeRepo) GetByAdminID(_ context.Context, adminID string) (*Practice, error) {
	for _, p := range m.practices {
		if p.AdminID == adminID {
			return p, nil
		}
	}
	return nil, ErrPracticeNotFound
}

type mockRegistrar struct {
	calls []auth.RegisterRequest
	reg   *auth.Registration
	err   error
}

func (m *mockRegistrar) Register(_ context.Context, r auth.RegisterRequest) (*auth.Registration, error) {
	m.calls = append(m.calls, r)
	if m.err != nil {
		return nil, m.err
	}
	return m.reg, nil
}

type testDeps struct {
	admins    *mockAdminRepo
	practices *mockPracticeRepo
	registrar *mockRegistrar
}

func newTestService() (*Service, *testDeps) {
	deps := &testDeps{
		admins:    newMockAdminRepo(),
		practices: newMockPracticeRepo(),
		registrar: &mockRegistrar{reg: &auth.Registration{UserID: "user-1", AccessToken: "tok", TokenType: "bearer"}},
	}
	return NewService(deps.admins, deps.practices, deps.registrar, nil, zerolog.Nop()), deps
}

func validRegistration() RegisterAdminRequest {
	return RegisterAdminRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password1: "secret",
		Password2: "secret",
	}
}

func validPractice() CreatePracticeRequest {
	return CreatePracticeRequest{
		PracticeName:        "Riverside Surgery",
		PracticeEmail:       "front@riverside.example",
		PracticePhoneNumber: "+441234567890",
		PracticeAddress:     "1 River Road",
	}
}

// -- Admin registration --

func TestService_RegisterAdmin(t *testing.T) {
	svc, deps := newTestService()

	res, err := svc.RegisterAdmin(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "user-1" {
		t.Errorf("expected id from auth service, got %q", res.ID)
	}
	if res.Message != "Admin registration successful" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.TokenType != "bearer" || res.AccessToken != "tok" {
		t.Errorf("unexpected token fields %q %q", res.TokenType, res.AccessToken)
	}
	if _, ok := deps.admins.admins["user-1"]; !ok {
		t.Error("expected local admin row keyed by auth user id")
	}

	if len(deps.registrar.calls) != 1 {
		t.Fatalf("expected 1 register call, got %d", len(deps.registrar.calls))
	}
	sent := deps.registrar.calls[0]
	if sent.Name != "Ada Lovelace" || sent.Role != "admin" {
		t.Errorf("unexpected register payload %+v", sent)
	}
}

func TestService_RegisterAdmin_UpstreamError(t *testing.T) {
	svc, deps := newTestService()
	deps.registrar.err = &auth.UpstreamError{StatusCode: 400, Body: json.RawMessage(`{"detail":"Email already registered"}`)}

	_, err := svc.RegisterAdmin(context.Background(), validRegistration())
	var upstream *auth.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if upstream.StatusCode != 400 {
		t.Errorf("expected 400, got %d", upstream.StatusCode)
	}
	if len(deps.admins.admins) != 0 {
		t.Error("no local row should be written when the auth service refuses")
	}
}

func TestService_RegisterAdmin_LocalFailure(t *testing.T) {
	svc, deps := newTestService()
	deps.admins.createErr = fmt.Errorf("connection reset")

	_, err := svc.RegisterAdmin(context.Background(), validRegistration())
	var record *AdminRecordError
	if !errors.As(err, &record) {
		t.Fatalf("expected AdminRecordError, got %v", err)
	}
	if record.UserID != "user-1" {
		t.Errorf("expected dangling user id to be reported, got %q", record.UserID)
	}
}

// -- Profile --

func TestService_Profile_NoPractice(t *testing.T) {
	svc, _ := newTestService()
	svc.RegisterAdmin(context.Background(), validRegistration())

	a, p, err := svc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.FirstName != "Ada" {
		t.Errorf("expected Ada, got %s", a.FirstName)
	}
	if p != nil {
		t.Errorf("expected nil practice, got %+v", p)
	}
}

func TestService_Profile_UnknownAdmin(t *testing.T) {
	svc, _ := newTestService()
	_, _, err := svc.Profile(context.Background(), "ghost")
	if !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("expected ErrAdminNotFound, got %v", err)
	}
}

// -- Practice --

func TestService_RegisterPractice(t *testing.T) {
	svc, _ := newTestService()
	svc.RegisterAdmin(context.Background(), validRegistration())

	p, err := svc.RegisterPractice(context.Background(), "user-1", validPractice())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if p.AdminID != "user-1" {
		t.Errorf("expected admin id user-1, got %s", p.AdminID)
	}

	got, err := svc.PracticeForAdmin(context.Background(), "user-1")
	if err != nil || got.ID != p.ID {
		t.Errorf("expected practice to resolve for admin, got %v %v", got, err)
	}
}

func TestService_RegisterPractice_AdminMissing(t *testing.T) {
	svc, deps := newTestService()
	_, err := svc.RegisterPractice(context.Background(), "ghost", validPractice())
	if !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("expected ErrAdminNotFound, got %v", err)
	}
	if len(deps.practices.practices) != 0 {
		t.Error("no practice should be created")
	}
}

func TestService_RegisterPractice_DuplicateEmail(t *testing.T) {
	svc, deps := newTestService()
	deps.admins.admins["a1"] = &Admin{ID: "a1"}
	deps.admins.admins["a2"] = &Admin{ID: "a2"}

	if _, err := svc.RegisterPractice(context.Background(), "a1", validPractice()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.RegisterPractice(context.Background(), "a2", validPractice())
	if !errors.Is(err, ErrDuplicatePracticeEmail) {
		t.Errorf("expected ErrDuplicatePracticeEmail, got %v", err)
	}
	if len(deps.practices.practices) != 1 {
		t.Errorf("expected exactly 1 practice row, got %d", len(deps.practices.practices))
	}
}

func TestService_RegisterPractice_SecondPractice(t *testing.T) {
	svc, deps := newTestService()
	deps.admins.admins["a1"] = &Admin{ID: "a1"}

	svc.RegisterPractice(context.Background(), "a1", validPractice())
	other := validPractice()
	other.PracticeEmail = "other@riverside.example"
	_, err := svc.RegisterPractice(context.Background(), "a1", other)
	if !errors.Is(err, ErrAdminHasPractice) {
		t.Errorf("expected ErrAdminHasPractice, got %v", err)
	}
}

func TestService_PracticeForAdmin_Empty(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.PracticeForAdmin(context.Background(), "")
	if !errors.Is(err, ErrPracticeNotFound) {
		t.Errorf("expected ErrPracticeNotFound, got %v", err)
	}
}
