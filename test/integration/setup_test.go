//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/domain/admin"
	"github.com/wahealthh/recall-product-backend/internal/domain/recall"
	"github.com/wahealthh/recall-product-backend/internal/platform/auth"
	"github.com/wahealthh/recall-product-backend/internal/platform/db"
	"github.com/wahealthh/recall-product-backend/migrations"
)

// globalPool is migrated once in TestMain and shared by every test. Tests
// isolate themselves by registering their own admin and practice.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "create pool: %v\n", err)
		os.Exit(1)
	}

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx, db.DefaultSchema); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// stubRegistrar hands out fresh user ids in place of the auth service.
type stubRegistrar struct{}

func (stubRegistrar) Register(_ context.Context, r auth.RegisterRequest) (*auth.Registration, error) {
	return &auth.Registration{UserID: "user-" + uuid.NewString(), AccessToken: "tok", TokenType: "bearer"}, nil
}

type services struct {
	admin  *admin.Service
	recall *recall.Service
}

func newServices() *services {
	logger := zerolog.Nop()
	adminSvc := admin.NewService(
		admin.NewAdminRepo(globalPool),
		admin.NewPracticeRepo(globalPool),
		stubRegistrar{},
		globalPool,
		logger,
	)
	recallSvc := recall.NewService(
		recall.NewGroupRepo(globalPool),
		recall.NewPatientRepo(globalPool),
		adminSvc,
		globalPool,
		logger,
	)
	return &services{admin: adminSvc, recall: recallSvc}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
}

// registerAdmin creates an admin row and returns its id.
func registerAdmin(t *testing.T, ctx context.Context, svc *services) string {
	t.Helper()
	res, err := svc.admin.RegisterAdmin(ctx, admin.RegisterAdminRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     uniqueEmail("admin"),
		Password1: "secret",
		Password2: "secret",
	})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	return res.ID
}

func practiceRequest(email string) admin.CreatePracticeRequest {
	return admin.CreatePracticeRequest{
		PracticeName:        "Riverside Surgery",
		PracticeEmail:       email,
		PracticePhoneNumber: "+441234567890",
		PracticeAddress:     "1 River Road",
	}
}

// adminWithPractice registers an admin that owns a fresh practice.
func adminWithPractice(t *testing.T, ctx context.Context, svc *services) (string, *admin.Practice) {
	t.Helper()
	adminID := registerAdmin(t, ctx, svc)
	p, err := svc.admin.RegisterPractice(ctx, adminID, practiceRequest(uniqueEmail("practice")))
	if err != nil {
		t.Fatalf("register practice: %v", err)
	}
	return adminID, p
}

func patientInput(first string) recall.PatientInput {
	return recall.PatientInput{
		FirstName: first,
		LastName:  "Smith",
		Email:     strings.ToLower(first) + "@example.com",
		Number:    "+447700900000",
		DOB:       "1990-01-01",
	}
}

func countPatients(t *testing.T, ctx context.Context, groupID uuid.UUID) int {
	t.Helper()
	var n int
	err := globalPool.QueryRow(ctx,
		`SELECT count(*) FROM recall_patients WHERE recall_group_id = $1`, groupID).Scan(&n)
	if err != nil {
		t.Fatalf("count patients: %v", err)
	}
	return n
}

func ptrStr(s string) *string { return &s }
