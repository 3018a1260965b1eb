package recall

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrGroupNotFound   = errors.New("recall group not found")
	ErrPatientNotFound = errors.New("recall patient not found")
	ErrInvalidCSV      = errors.New("invalid csv")
)

// Group maps to the recall_groups table.
type Group struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	PracticeID  uuid.UUID `db:"practice_id" json:"practice_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GroupWithPatients is a group and its patients in insertion order.
type GroupWithPatients struct {
	*Group
	Patients []*Patient `json:"patients"`
}

// Patient maps to the recall_patients table.
type Patient struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Email         string    `db:"email" json:"email"`
	Number        string    `db:"number" json:"number"`
	DOB           string    `db:"dob" json:"dob"`
	Notes         *string   `db:"notes" json:"notes"`
	RecallGroupID uuid.UUID `db:"recall_group_id" json:"recall_group_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName is "First Last", the name used in batch results.
func (p *Patient) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

// PatientInput is one patient in an add or import request.
type PatientInput struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required"`
	Number    string  `json:"number" validate:"required"`
	DOB       string  `json:"dob" validate:"required"`
	Notes     *string `json:"notes"`
}

func (in PatientInput) DisplayName() string {
	return in.FirstName + " " + in.LastName
}

func (in PatientInput) toPatient(groupID uuid.UUID) *Patient {
	return &Patient{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Number:        in.Number,
		DOB:           in.DOB,
		Notes:         in.Notes,
		RecallGroupID: groupID,
	}
}

type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

type ImportCSVRequest struct {
	FileContent string `json:"file_content" validate:"required"`
}

// PatientError reports one patient that could not be added.
type PatientError struct {
	Patient string `json:"patient"`
	Error   string `json:"error"`
}

// BatchResult is the outcome of adding a list of patients, one commit per
// patient.
type BatchResult struct {
	SuccessCount int            `json:"success_count"`
	FailedCount  int            `json:"failed_count"`
	Patients     []*Patient     `json:"patients"`
	Errors       []PatientError `json:"errors"`
}

// ImportResult is the outcome of a CSV import.
type ImportResult struct {
	Message       string   `json:"message"`
	ImportedCount int      `json:"imported_count"`
	Errors        []string `json:"errors,omitempty"`
}
