package calls

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wahealthh/recall-product-backend/internal/domain/recall"
)

func newTestDispatcher(p *fakeProvider) *Dispatcher {
	d := NewDispatcher(p, "asst-1", "phone-1", zerolog.Nop())
	d.now = func() time.Time { return time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC) }
	return d
}

func target(first, number string) Target {
	return Target{
		FirstName: first,
		LastName:  "Smith",
		Email:     first + "@example.com",
		Number:    number,
		DOB:       "1990-01-01",
	}
}

func TestDispatcher_Request(t *testing.T) {
	p := newFakeProvider()
	d := newTestDispatcher(p)
	notes := "prefers mornings"
	tg := target("Ada", "+441")
	tg.Notes = &notes

	if _, err := d.Call(context.Background(), tg, "annual review"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := p.created[0]
	if req.AssistantID != "asst-1" || req.PhoneNumberID != "phone-1" || req.Customer.Number != "+441" {
		t.Errorf("unexpected request %+v", req)
	}
	vars := req.AssistantOverrides.VariableValues
	want := map[string]string{
		"first_name":   "Ada",
		"last_name":    "Smith",
		"dob":          "1990-01-01",
		"email":        "Ada@example.com",
		"current_date": "2024-05-03",
		"current_day":  "Friday",
		"notes":        "prefers mornings",
		"call_context": "annual review",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s = %v, want %q", k, vars[k], v)
		}
	}
}

func TestDispatcher_Request_NilNotes(t *testing.T) {
	p := newFakeProvider()
	d := newTestDispatcher(p)
	d.Call(context.Background(), target("Ada", "+441"), "")

	if v := p.created[0].AssistantOverrides.VariableValues["notes"]; v != "" {
		t.Errorf("expected empty notes, got %v", v)
	}
}

func TestDispatcher_Dispatch_PartialFailure(t *testing.T) {
	p := newFakeProvider()
	p.reject["+442"] = rejectWith(422, `{"message":"invalid number"}`)
	d := newTestDispatcher(p)

	res := d.Dispatch(context.Background(), "group", []Target{
		target("Ada", "+441"),
		target("Bob", "+442"),
		target("Cy", "+443"),
	}, "")

	if res.SuccessCount != 2 || res.FailedCount != 1 {
		t.Fatalf("expected 2/1, got %d/%d", res.SuccessCount, res.FailedCount)
	}
	if len(p.created) != 3 {
		t.Errorf("expected every target attempted, got %d", len(p.created))
	}
	if res.Calls[0].Patient != "Ada Smith" || res.Calls[1].Patient != "Cy Smith" {
		t.Errorf("expected successes in input order, got %+v", res.Calls)
	}
	if res.Calls[0].CallID != "call-1" || res.Calls[0].Status != "queued" {
		t.Errorf("unexpected success %+v", res.Calls[0])
	}
	if res.Errors[0].Patient != "Bob Smith" || res.Errors[0].Error != "invalid number" {
		t.Errorf("unexpected failure %+v", res.Errors[0])
	}
	if res.AllFailed() {
		t.Error("expected AllFailed to be false")
	}
}

func TestDispatcher_Dispatch_AllFailed(t *testing.T) {
	p := newFakeProvider()
	p.reject["+441"] = errors.New("connection refused")
	d := newTestDispatcher(p)

	res := d.Dispatch(context.Background(), "group", []Target{target("Ada", "+441")}, "")
	if !res.AllFailed() {
		t.Fatal("expected AllFailed")
	}
	if res.Errors[0].Error != "connection refused" {
		t.Errorf("unexpected failure detail %q", res.Errors[0].Error)
	}
	if len(res.Calls) != 0 {
		t.Errorf("expected empty calls, got %+v", res.Calls)
	}
}

func TestDispatcher_Dispatch_Empty(t *testing.T) {
	res := newTestDispatcher(newFakeProvider()).Dispatch(context.Background(), "group", nil, "")
	if res.SuccessCount != 0 || res.FailedCount != 0 || res.AllFailed() {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestFailureDetail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"message", rejectWith(400, `{"message":"bad"}`), "bad"},
		{"message list", rejectWith(400, `{"message":["a","b"]}`), "a; b"},
		{"body", rejectWith(500, `{"error":"boom"}`), `{"error":"boom"}`},
		{"plain", errors.New("timeout"), "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureDetail(tt.err); got != tt.want {
				t.Errorf("FailureDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTargetFromPatient(t *testing.T) {
	notes := "n"
	tg := TargetFromPatient(&recall.Patient{
		FirstName: "Ada", LastName: "Lovelace", Email: "a@x", Number: "+1", DOB: "1815-12-10", Notes: &notes,
	})
	if tg.DisplayName() != "Ada Lovelace" || tg.Number != "+1" || tg.Notes == nil || *tg.Notes != "n" {
		t.Errorf("unexpected target %+v", tg)
	}
}

func TestDecodeTargets(t *testing.T) {
	records := []json.RawMessage{
		json.RawMessage(`{"first_name":"Ada","last_name":"L","email":"a@x","number":"+1","dob":"1990-01-01"}`),
		json.RawMessage(`{"first_name":"Bob","last_name":"M"}`),
		json.RawMessage(`"not an object"`),
	}
	targets, failures := DecodeTargets(records)
	if len(targets) != 1 || targets[0].FirstName != "Ada" {
		t.Fatalf("unexpected targets %+v", targets)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", failures)
	}
	if failures[0].Patient != "Bob M" || failures[0].Error != "missing phone number" {
		t.Errorf("unexpected failure %+v", failures[0])
	}
	if failures[1].Patient != "record 3" {
		t.Errorf("expected positional name, got %+v", failures[1])
	}
}

func TestDecodeTargets_PositionCountsFromOne(t *testing.T) {
	_, failures := DecodeTargets([]json.RawMessage{json.RawMessage(`{"number":""}`)})
	if len(failures) != 1 || failures[0].Patient != "record 1" {
		t.Errorf("expected first record labelled record 1, got %+v", failures)
	}
}
