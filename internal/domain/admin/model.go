package admin

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAdminNotFound          = errors.New("admin not found")
	ErrPracticeNotFound       = errors.New("practice not found")
	ErrDuplicatePracticeEmail = errors.New("practice email already exists")
	ErrAdminHasPractice       = errors.New("admin already has a practice")
)

// AdminRecordError means the auth service accepted a registration but the
// local admin row could not be written.
type AdminRecordError struct {
	UserID string
	Err    error
}

func (e *AdminRecordError) Error() string {
	return "failed to create admin record: " + e.Err.Error()
}

func (e *AdminRecordError) Unwrap() error { return e.Err }

// Admin maps to the admins table. ID is the user id minted by the auth
// service at registration.
type Admin struct {
	ID        string    `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Practice maps to the practices table. Each admin owns at most one.
type Practice struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	PracticeName        string    `db:"practice_name" json:"practice_name"`
	PracticeEmail       string    `db:"practice_email" json:"practice_email"`
	PracticePhoneNumber string    `db:"practice_phone_number" json:"practice_phone_number"`
	PracticeAddress     string    `db:"practice_address" json:"practice_address"`
	AdminID             string    `db:"admin_id" json:"admin_id"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterAdminRequest is the body of POST /admin/register.
type RegisterAdminRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

// RegisterAdminResult is what a successful registration returns to the client.
type RegisterAdminResult struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreatePracticeRequest is the body of POST /practice/register.
type CreatePracticeRequest struct {
	PracticeName        string `json:"practice_name" validate:"required"`
	PracticeEmail       string `json:"practice_email" validate:"required,email"`
	PracticePhoneNumber string `json:"practice_phone_number" validate:"required"`
	PracticeAddress     string `json:"practice_address" validate:"required"`
}
