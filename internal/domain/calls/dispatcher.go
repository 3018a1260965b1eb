package calls

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wahealthh/recall-product-backend/internal/domain/recall"
	"github.com/wahealthh/recall-product-backend/internal/platform/metrics"
	"github.com/wahealthh/recall-product-backend/internal/platform/telemetry"
	"github.com/wahealthh/recall-product-backend/internal/platform/vapi"
)

// CallCreator places outbound calls. *vapi.Client satisfies it.
type CallCreator interface {
	CreateCall(ctx context.Context, req vapi.CreateCallRequest) (*vapi.Call, error)
}

// Target is one person to call.
type Target struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required"`
	Number    string  `json:"number" validate:"required"`
	DOB       string  `json:"dob" validate:"required"`
	Notes     *string `json:"notes,omitempty"`
}

func (t Target) DisplayName() string {
	return t.FirstName + " " + t.LastName
}

// TargetFromPatient builds a call target from a stored recall patient.
func TargetFromPatient(p *recall.Patient) Target {
	return Target{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Number:    p.Number,
		DOB:       p.DOB,
		Notes:     p.Notes,
	}
}

// Success is one call the provider accepted.
type Success struct {
	Patient   string `json:"patient"`
	CallID    string `json:"call_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Failure is one call the provider refused or that never reached it.
type Failure struct {
	Patient string `json:"patient"`
	Error   string `json:"error"`
}

// BatchResult holds the ordered outcomes of a batch. SuccessCount plus
// FailedCount always equals the number of targets.
type BatchResult struct {
	SuccessCount int       `json:"success_count"`
	FailedCount  int       `json:"failed_count"`
	Calls        []Success `json:"calls"`
	Errors       []Failure `json:"errors"`
}

// AllFailed reports a non-empty batch in which no call succeeded.
func (r *BatchResult) AllFailed() bool {
	return r.SuccessCount == 0 && r.FailedCount > 0
}

type Dispatcher struct {
	calls         CallCreator
	assistantID   string
	phoneNumberID string
	now           func() time.Time
	logger        zerolog.Logger
}

func NewDispatcher(calls CallCreator, assistantID, phoneNumberID string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		calls:         calls,
		assistantID:   assistantID,
		phoneNumberID: phoneNumberID,
		now:           time.Now,
		logger:        logger,
	}
}

func (d *Dispatcher) request(t Target, callContext string) vapi.CreateCallRequest {
	now := d.now()
	notes := ""
	if t.Notes != nil {
		notes = *t.Notes
	}
	return vapi.CreateCallRequest{
		AssistantID:   d.assistantID,
		PhoneNumberID: d.phoneNumberID,
		Customer:      vapi.Customer{Number: t.Number},
		AssistantOverrides: &vapi.AssistantOverrides{
			VariableValues: map[string]interface{}{
				"first_name":   t.FirstName,
				"last_name":    t.LastName,
				"dob":          t.DOB,
				"email":        t.Email,
				"current_date": now.Format("2006-01-02"),
				"current_day":  now.Weekday().String(),
				"notes":        notes,
				"call_context": callContext,
			},
		},
	}
}

// Call places a single call.
func (d *Dispatcher) Call(ctx context.Context, t Target, callContext string) (*vapi.Call, error) {
	return d.calls.CreateCall(ctx, d.request(t, callContext))
}

// Dispatch calls every target in order. A failed call is recorded against
// its target and never stops the rest of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, source string, targets []Target, callContext string) *BatchResult {
	ctx, span := telemetry.StartSpan(ctx, "calls.dispatch",
		attribute.String("calls.source", source),
		attribute.Int("calls.count", len(targets)),
	)
	defer span.End()

	res := &BatchResult{Calls: []Success{}, Errors: []Failure{}}
	for _, t := range targets {
		call, err := d.Call(ctx, t, callContext)
		if err != nil {
			metrics.CallsDispatchedTotal.WithLabelValues(source, "failed").Inc()
			d.logger.Warn().Err(err).Str("source", source).Str("patient", t.DisplayName()).Msg("call failed")
			res.FailedCount++
			res.Errors = append(res.Errors, Failure{Patient: t.DisplayName(), Error: FailureDetail(err)})
			continue
		}
		metrics.CallsDispatchedTotal.WithLabelValues(source, "created").Inc()
		res.SuccessCount++
		res.Calls = append(res.Calls, Success{
			Patient:   t.DisplayName(),
			CallID:    call.ID,
			Status:    call.Status,
			CreatedAt: call.CreatedAt,
		})
	}

	span.SetAttributes(
		attribute.Int("calls.succeeded", res.SuccessCount),
		attribute.Int("calls.failed", res.FailedCount),
	)
	if res.AllFailed() {
		span.SetStatus(codes.Error, "all calls failed")
	}
	return res
}

// FailureDetail is the provider's error message when it sent one, else
// its raw error body, else the error text.
func FailureDetail(err error) string {
	var apiErr *vapi.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	if msg := apiErr.Message(); msg != "" {
		return msg
	}
	if body := apiErr.BodyString(); body != "" {
		return body
	}
	return err.Error()
}

// DecodeTargets turns registry records into call targets. Records that do
// not decode are returned as failures so they still appear in the result;
// unnamed ones are labelled by position counting from 1.
func DecodeTargets(records []json.RawMessage) ([]Target, []Failure) {
	targets := make([]Target, 0, len(records))
	var failures []Failure
	for i, raw := range records {
		var t Target
		if err := json.Unmarshal(raw, &t); err != nil || t.Number == "" {
			name := t.DisplayName()
			if t.FirstName == "" && t.LastName == "" {
				name = "record " + strconv.Itoa(i+1)
			}
			detail := "missing phone number"
			if err != nil {
				detail = err.Error()
			}
			failures = append(failures, Failure{Patient: name, Error: detail})
			continue
		}
		targets = append(targets, t)
	}
	return targets, failures
}
