package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// AppointmentData is what the voice assistant's appointment tool sends.
type AppointmentData struct {
	PatientEmail    string `json:"patient_email" validate:"required,email"`
	PatientName     string `json:"patient_name,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`
	AppointmentTime string `json:"appointment_time,omitempty"`
	Notes           string `json:"notes,omitempty"`
	GPName          string `json:"gp_name,omitempty"`
}

const (
	defaultPatientName = "Patient"
	notSpecified       = "Not specified"
	confirmationTpl    = "mail.html"
)

type confirmationView struct {
	ProjectName     string
	PatientName     string
	PatientEmail    string
	AppointmentDate string
	AppointmentTime string
	Details         AppointmentData
}

// Mailer renders and sends appointment confirmations.
type Mailer struct {
	sender      EmailSender
	templates   *TemplateEngine
	projectName string
	logger      zerolog.Logger
}

func NewMailer(sender EmailSender, templates *TemplateEngine, projectName string, logger zerolog.Logger) *Mailer {
	return &Mailer{sender: sender, templates: templates, projectName: projectName, logger: logger}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// SendConfirmation emails the patient and returns the mail service's
// status code.
func (m *Mailer) SendConfirmation(ctx context.Context, data AppointmentData) (int, error) {
	view := confirmationView{
		ProjectName:     m.projectName,
		PatientName:     orDefault(data.PatientName, defaultPatientName),
		PatientEmail:    data.PatientEmail,
		AppointmentDate: orDefault(data.AppointmentDate, notSpecified),
		AppointmentTime: orDefault(data.AppointmentTime, notSpecified),
		Details:         data,
	}

	html, err := m.templates.Render(confirmationTpl, view)
	if err != nil {
		return 0, err
	}

	subject := fmt.Sprintf("Appointment Confirmation for %s", view.PatientName)
	status, err := m.sender.SendEmail(ctx, data.PatientEmail, subject, html)
	if err != nil {
		m.logger.Error().Err(err).Str("to", data.PatientEmail).Msg("confirmation email failed")
		return status, err
	}

	m.logger.Info().
		Str("to", data.PatientEmail).
		Int("status_code", status).
		Msg("confirmation email sent")
	return status, nil
}
