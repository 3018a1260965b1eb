package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wahealthh/recall-product-backend/internal/platform/vapi"
)

// fakeProvider stands in for the Vapi client. Calls to numbers listed in
// reject fail with the mapped error.
type fakeProvider struct {
	mu       sync.Mutex
	reject   map[string]error
	created  []vapi.CreateCallRequest
	pages    [][]json.RawMessage
	listErr  error
	listed   []vapi.ListParams
	records  map[string]json.RawMessage
	deleted  []string
	storeErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		reject:  make(map[string]error),
		records: make(map[string]json.RawMessage),
	}
}

func (f *fakeProvider) CreateCall(_ context.Context, req vapi.CreateCallRequest) (*vapi.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if err, ok := f.reject[req.Customer.Number]; ok {
		return nil, err
	}
	return &vapi.Call{
		ID:        fmt.Sprintf("call-%d", len(f.created)),
		Status:    "queued",
		CreatedAt: "2024-05-01T10:00:00.000Z",
	}, nil
}

func (f *fakeProvider) ListCalls(_ context.Context, p vapi.ListParams) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, p)
	if f.listErr != nil && len(f.listed) > len(f.pages) {
		return nil, f.listErr
	}
	i := len(f.listed) - 1
	if i >= len(f.pages) {
		return []json.RawMessage{}, nil
	}
	page := f.pages[i]
	if len(page) > p.Limit {
		page = page[:p.Limit]
	}
	return page, nil
}

func (f *fakeProvider) GetCall(_ context.Context, id string) (json.RawMessage, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	raw, ok := f.records[id]
	if !ok {
		return nil, &vapi.APIError{StatusCode: 404, Body: json.RawMessage(`{"message":"Call not found"}`)}
	}
	return raw, nil
}

func (f *fakeProvider) DeleteCall(_ context.Context, id string) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	if _, ok := f.records[id]; !ok {
		return &vapi.APIError{StatusCode: 404, Body: json.RawMessage(`{"message":"Call not found"}`)}
	}
	delete(f.records, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeDueSource struct {
	records []json.RawMessage
	err     error
}

func (f *fakeDueSource) DuePatients(context.Context) ([]json.RawMessage, error) {
	return f.records, f.err
}

func rejectWith(status int, body string) error {
	return &vapi.APIError{StatusCode: status, Body: json.RawMessage(body)}
}
