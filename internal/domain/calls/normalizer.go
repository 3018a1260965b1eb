package calls

import (
	"context"
	"encoding/json"
	"errors"
	"iter"

	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/platform/metrics"
	"github.com/wahealthh/recall-product-backend/internal/platform/vapi"
)

const (
	maxPageSize   = 10
	defaultStatus = "Incomplete"
)

var ErrInvalidLimit = errors.New("limit must be greater than 0")

// CallLister pages through provider call records, newest first.
// *vapi.Client satisfies it.
type CallLister interface {
	ListCalls(ctx context.Context, p vapi.ListParams) ([]json.RawMessage, error)
}

// CallHistory is the normalized view of one provider call record. It is
// rebuilt from provider data on every fetch.
type CallHistory struct {
	ID                 string  `json:"id"`
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Phone              *string `json:"phone"`
	Summary            *string `json:"summary"`
	Minutes            float64 `json:"minutes"`
	AppointmentDate    *string `json:"appointment_date"`
	AppointmentTime    *string `json:"appointment_time"`
	CallDate           *string `json:"call_date"`
	Status             string  `json:"status"`
	StereoRecordingURL *string `json:"stereo_recording_url"`
}

type Normalizer struct {
	calls    CallLister
	toolName string
	costType string
	logger   zerolog.Logger
}

func NewNormalizer(calls CallLister, toolName, costType string, logger zerolog.Logger) *Normalizer {
	return &Normalizer{calls: calls, toolName: toolName, costType: costType, logger: logger}
}

// Stream yields normalized records for up to limit provider records.
// Skipped records still count against limit. Each page after the first
// asks for records created strictly before the last record seen, so a
// record sharing that exact createdAt but cut off by the page size is not
// returned. Paging stops at an empty page or when the createdAt cursor
// cannot move further back. A provider failure is yielded once as the
// error and ends the sequence.
func (n *Normalizer) Stream(ctx context.Context, limit int) iter.Seq2[CallHistory, error] {
	return func(yield func(CallHistory, error) bool) {
		consumed := 0
		cursor := ""
		for consumed < limit {
			page, err := n.calls.ListCalls(ctx, vapi.ListParams{
				Limit:       min(maxPageSize, limit-consumed),
				CreatedAtLt: cursor,
			})
			if err != nil {
				yield(CallHistory{}, err)
				return
			}
			if len(page) == 0 {
				return
			}

			last := ""
			for _, raw := range page {
				if consumed >= limit {
					return
				}
				consumed++

				h, createdAt, ok := n.Normalize(raw)
				if createdAt != "" {
					last = createdAt
				}
				if !ok {
					metrics.CallRecordsTotal.WithLabelValues("skipped").Inc()
					continue
				}
				metrics.CallRecordsTotal.WithLabelValues("normalized").Inc()
				if !yield(h, nil) {
					return
				}
			}

			if last == "" || last == cursor {
				return
			}
			cursor = last
		}
	}
}

// History collects Stream into a slice. Any error discards what was
// already collected.
func (n *Normalizer) History(ctx context.Context, limit int) ([]CallHistory, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	out := []CallHistory{}
	for h, err := range n.Stream(ctx, limit) {
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// Normalize reduces one raw provider record. ok is false when the record
// carries no call-time variable values. createdAt is returned either way
// so paging can continue past skipped records. Each field is read on its
// own, so a field of an unexpected type is left empty rather than
// dropping the record.
func (n *Normalizer) Normalize(raw json.RawMessage) (h CallHistory, createdAt string, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		n.logger.Debug().Err(err).Msg("skipping call record that is not an object")
		return CallHistory{}, "", false
	}
	id := stringValue(fields["id"])
	createdAt = stringValue(fields["createdAt"])

	vars := variableValues(fields["assistantOverrides"])
	if len(vars) == 0 {
		n.logger.Debug().Str("call_id", id).Msg("skipping call without variable values")
		return CallHistory{}, createdAt, false
	}

	h = CallHistory{
		ID:                 id,
		FirstName:          stringField(vars, "first_name"),
		LastName:           stringField(vars, "last_name"),
		Phone:              optional(stringValue(member(fields["customer"], "number"))),
		Summary:            jsonString(fields["summary"]),
		Minutes:            n.minutes(fields["costs"]),
		CallDate:           optional(createdAt),
		Status:             defaultStatus,
		StereoRecordingURL: recordingURL(fields),
	}
	if h.Summary == nil {
		h.Summary = jsonString(member(fields["analysis"], "summary"))
	}

	n.scanMessages(fields["messages"], &h)
	return h, createdAt, true
}

// variableValues reads assistantOverrides.variableValues, accepting the
// snake_case spelling some SDKs emit.
func variableValues(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var overrides map[string]json.RawMessage
	if err := json.Unmarshal(raw, &overrides); err != nil || overrides == nil {
		return nil
	}
	for _, key := range []string{"variableValues", "variable_values"} {
		v, ok := overrides[key]
		if !ok {
			continue
		}
		var vars map[string]interface{}
		if err := json.Unmarshal(v, &vars); err == nil && len(vars) > 0 {
			return vars
		}
	}
	return nil
}

// minutes takes the first cost entry billed under the provider's own
// category.
func (n *Normalizer) minutes(raw json.RawMessage) float64 {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0
	}
	for _, e := range entries {
		var cost struct {
			Type    string   `json:"type"`
			Minutes *float64 `json:"minutes"`
		}
		if err := json.Unmarshal(e, &cost); err != nil || cost.Type != n.costType {
			continue
		}
		if cost.Minutes == nil {
			return 0
		}
		return *cost.Minutes
	}
	return 0
}

func (n *Normalizer) scanMessages(raw json.RawMessage, h *CallHistory) {
	var messages []json.RawMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return
	}
	for _, m := range messages {
		msg := classifyMessage(m)
		switch msg.kind {
		case messageToolCalls:
			for _, fn := range msg.calls {
				if fn.Name == n.toolName {
					applyAppointment(fn.Arguments, h)
				}
			}
		case messageFunction:
			if msg.fn.Name == n.toolName {
				applyAppointment(msg.fn.Arguments, h)
			}
		case messageToolResult:
			if msg.name == n.toolName && msg.result != nil {
				h.Status = *msg.result
			}
		}
	}
}

// applyAppointment copies appointment_data.appointment_date and
// appointment_time from a tool call's arguments. Unparseable arguments
// leave h unchanged.
func applyAppointment(args json.RawMessage, h *CallHistory) {
	var payload struct {
		AppointmentData *struct {
			AppointmentDate json.RawMessage `json:"appointment_date"`
			AppointmentTime json.RawMessage `json:"appointment_time"`
		} `json:"appointment_data"`
	}
	if err := json.Unmarshal(unwrapArguments(args), &payload); err != nil {
		return
	}
	if payload.AppointmentData == nil {
		h.AppointmentDate, h.AppointmentTime = nil, nil
		return
	}
	h.AppointmentDate = jsonString(payload.AppointmentData.AppointmentDate)
	h.AppointmentTime = jsonString(payload.AppointmentData.AppointmentTime)
}

// unwrapArguments returns the JSON object inside args, which providers send
// either as an object or as a string holding encoded JSON.
func unwrapArguments(args json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(args, &s); err == nil {
		return json.RawMessage(s)
	}
	return args
}

func recordingURL(fields map[string]json.RawMessage) *string {
	if url := optional(stringValue(fields["stereoRecordingUrl"])); url != nil {
		return url
	}
	return optional(stringValue(member(fields["artifact"], "stereoRecordingUrl")))
}

// member returns obj[key], or nil when obj is not a JSON object.
func member(obj json.RawMessage, key string) json.RawMessage {
	var m map[string]json.RawMessage
	if len(obj) == 0 || json.Unmarshal(obj, &m) != nil {
		return nil
	}
	return m[key]
}

func stringValue(raw json.RawMessage) string {
	if s := jsonString(raw); s != nil {
		return *s
	}
	return ""
}

func stringField(m map[string]interface{}, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func jsonString(raw json.RawMessage) *string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return nil
	}
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
