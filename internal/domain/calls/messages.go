package calls

import "encoding/json"

type messageKind int

const (
	messageOther messageKind = iota
	messageToolCalls
	messageFunction
	messageToolResult
)

// functionCall is a tool invocation: its name and its arguments, which may
// be an object or a string of encoded JSON.
type functionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// callMessage is one entry of a call's message stream, reduced to the
// shapes the normalizer cares about. Only the fields of its kind are set.
type callMessage struct {
	kind   messageKind
	calls  []functionCall // messageToolCalls
	fn     functionCall   // messageFunction
	name   string         // messageToolResult
	result *string        // messageToolResult
}

// classifyMessage never fails: anything it cannot read becomes
// messageOther, and malformed tool-call entries are dropped.
func classifyMessage(raw json.RawMessage) callMessage {
	var m struct {
		Role      string          `json:"role"`
		Type      string          `json:"type"`
		Name      string          `json:"name"`
		Result    json.RawMessage `json:"result"`
		ToolCalls json.RawMessage `json:"toolCalls"`
		Snake     json.RawMessage `json:"tool_calls"`
		Function  json.RawMessage `json:"function"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return callMessage{kind: messageOther}
	}

	switch {
	case m.Role == "tool_calls":
		entries := m.ToolCalls
		if len(entries) == 0 {
			entries = m.Snake
		}
		return callMessage{kind: messageToolCalls, calls: decodeToolCalls(entries)}
	case m.Type == "function":
		fn, ok := decodeFunction(m.Function)
		if !ok {
			return callMessage{kind: messageOther}
		}
		return callMessage{kind: messageFunction, fn: fn}
	case m.Role == "tool_call_result":
		return callMessage{kind: messageToolResult, name: m.Name, result: resultText(m.Result)}
	default:
		return callMessage{kind: messageOther}
	}
}

func decodeToolCalls(raw json.RawMessage) []functionCall {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	calls := make([]functionCall, 0, len(entries))
	for _, e := range entries {
		var entry struct {
			Function json.RawMessage `json:"function"`
		}
		if err := json.Unmarshal(e, &entry); err != nil {
			continue
		}
		if fn, ok := decodeFunction(entry.Function); ok {
			calls = append(calls, fn)
		}
	}
	return calls
}

func decodeFunction(raw json.RawMessage) (functionCall, bool) {
	if len(raw) == 0 {
		return functionCall{}, false
	}
	var fn functionCall
	if err := json.Unmarshal(raw, &fn); err != nil || fn.Name == "" || len(fn.Arguments) == 0 {
		return functionCall{}, false
	}
	return fn, true
}

// resultText returns a string result as-is and any other JSON value as
// its encoded text.
func resultText(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	s = string(raw)
	return &s
}
