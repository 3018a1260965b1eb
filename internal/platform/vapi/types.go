package vapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type AssistantOverrides struct {
	VariableValues map[string]interface{} `json:"variableValues,omitempty"`
}

// CreateCallRequest is the body of POST /call.
type CreateCallRequest struct {
	AssistantID        string              `json:"assistantId"`
	PhoneNumberID      string              `json:"phoneNumberId"`
	Customer           Customer            `json:"customer"`
	AssistantOverrides *AssistantOverrides `json:"assistantOverrides,omitempty"`
}

// Call is the part of a provider call record this service reads back after
// creating a call. List and get responses are passed on as raw JSON and
// read field by field by their consumers.
type Call struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// DecodeCall decodes one record from a list or get response.
func DecodeCall(raw json.RawMessage) (Call, error) {
	var c Call
	if err := json.Unmarshal(raw, &c); err != nil {
		return Call{}, fmt.Errorf("decode call record: %w", err)
	}
	return c, nil
}

// APIError is a non-2xx answer from the provider. Body is the response body
// as JSON; a non-JSON body is wrapped as a JSON string.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vapi returned %d: %s", e.StatusCode, string(e.Body))
}

// Message extracts the "message" field of the error body. The provider
// sends either a string or a list of validation strings.
func (e *APIError) Message() string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil || len(body.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Message, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(body.Message, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

// BodyString returns the body as text; JSON strings are unquoted.
func (e *APIError) BodyString() string {
	var s string
	if err := json.Unmarshal(e.Body, &s); err == nil {
		return s
	}
	return string(e.Body)
}

func newAPIError(status int, body []byte) *APIError {
	raw := json.RawMessage(body)
	if len(body) == 0 || !json.Valid(body) {
		raw, _ = json.Marshal(string(body))
	}
	return &APIError{StatusCode: status, Body: raw}
}
