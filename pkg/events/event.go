package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownEventType is returned by Decode when the event_type discriminator
// is missing or unrecognized. Per the wire contract this is a programmer
// error at the decode site, not a recoverable runtime condition — callers
// should fail loudly rather than substitute a default.
var ErrUnknownEventType = errors.New("events: unknown event_type")

// Event is the tagged union of every variant the system can emit. Exactly one
// of the payload fields is populated, selected by Type. Constructors
// (NewText, NewToolCall, ...) are the supported way to build one; the zero
// value is not a valid event.
type Event struct {
	Type      Type
	Timestamp time.Time

	Text        *TextPayload
	ToolCall    *ToolCallPayload
	ToolResult  *ToolResultPayload
	HITLRequest *HITLRequestPayload
	TodoUpdate  *TodoUpdatePayload
	FileOp      *FileOperationPayload
	Error       *ErrorPayload
	Done        *DonePayload
}

// TextPayload is the payload of a "text" event: a streamed content delta.
type TextPayload struct {
	Content string `json:"content"`
	IsFinal bool   `json:"is_final"`
}

// ToolCallPayload is the payload of a "tool_call" event.
type ToolCallPayload struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
	CallID   string         `json:"call_id"`
}

// ToolResultPayload is the payload of a "tool_result" event.
type ToolResultPayload struct {
	CallID string           `json:"call_id"`
	Result any              `json:"result"`
	Status ToolResultStatus `json:"status"`
}

// HITLRequestPayload is the payload of a "hitl_request" event.
type HITLRequestPayload struct {
	InterruptID    string          `json:"interrupt_id"`
	ActionRequests []ActionRequest `json:"action_requests"`
}

// TodoUpdatePayload is the payload of a "todo_update" event.
type TodoUpdatePayload struct {
	Todos []Todo `json:"todos"`
}

// FileOperationPayload is the payload of a "file_operation" event.
type FileOperationPayload struct {
	Operation string         `json:"operation"`
	Path      string         `json:"path"`
	Metrics   *FileOpMetrics `json:"metrics,omitempty"`
	Diff      string         `json:"diff,omitempty"`
	Status    FileOpStatus   `json:"status"`
}

// ErrorPayload is the payload of an "error" event.
type ErrorPayload struct {
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// DonePayload is the payload of the terminal "done" event.
type DonePayload struct {
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	Cancelled  bool        `json:"cancelled"`
}

func now() time.Time { return time.Now().UTC() }

// NewText builds a "text" event.
func NewText(content string, isFinal bool) Event {
	return Event{Type: TypeText, Timestamp: now(), Text: &TextPayload{Content: content, IsFinal: isFinal}}
}

// NewToolCall builds a "tool_call" event.
func NewToolCall(toolName, callID string, args map[string]any) Event {
	return Event{Type: TypeToolCall, Timestamp: now(), ToolCall: &ToolCallPayload{ToolName: toolName, Args: args, CallID: callID}}
}

// NewToolResult builds a "tool_result" event.
func NewToolResult(callID string, result any, status ToolResultStatus) Event {
	return Event{Type: TypeToolResult, Timestamp: now(), ToolResult: &ToolResultPayload{CallID: callID, Result: result, Status: status}}
}

// NewHITLRequest builds a "hitl_request" event.
func NewHITLRequest(interruptID string, requests []ActionRequest) Event {
	return Event{Type: TypeHITLRequest, Timestamp: now(), HITLRequest: &HITLRequestPayload{InterruptID: interruptID, ActionRequests: requests}}
}

// NewTodoUpdate builds a "todo_update" event.
func NewTodoUpdate(todos []Todo) Event {
	return Event{Type: TypeTodoUpdate, Timestamp: now(), TodoUpdate: &TodoUpdatePayload{Todos: todos}}
}

// NewFileOperation builds a "file_operation" event.
func NewFileOperation(op, path string, metrics *FileOpMetrics, diff string, status FileOpStatus) Event {
	return Event{Type: TypeFileOp, Timestamp: now(), FileOp: &FileOperationPayload{Operation: op, Path: path, Metrics: metrics, Diff: diff, Status: status}}
}

// NewError builds an "error" event.
func NewError(message string, recoverable bool) Event {
	return Event{Type: TypeError, Timestamp: now(), Error: &ErrorPayload{Message: message, Recoverable: recoverable}}
}

// NewDone builds the terminal "done" event.
func NewDone(usage *TokenUsage, cancelled bool) Event {
	return Event{Type: TypeDone, Timestamp: now(), Done: &DonePayload{TokenUsage: usage, Cancelled: cancelled}}
}

// payload returns the single populated variant payload for an event, or nil
// for the sentinel stream_end marker which carries no payload of its own.
func (e Event) payload() any {
	switch e.Type {
	case TypeText:
		return e.Text
	case TypeToolCall:
		return e.ToolCall
	case TypeToolResult:
		return e.ToolResult
	case TypeHITLRequest:
		return e.HITLRequest
	case TypeTodoUpdate:
		return e.TodoUpdate
	case TypeFileOp:
		return e.FileOp
	case TypeError:
		return e.Error
	case TypeDone:
		return e.Done
	default:
		return nil
	}
}

// ToMap serializes the event to its wire map: event_type + variant fields +
// timestamp (RFC3339Nano). This is the sole wire format used by the HITL
// handler, the connection manager, the streaming dispatcher and message
// persistence.
func (e Event) ToMap() map[string]any {
	out := map[string]any{}
	if p := e.payload(); p != nil {
		b, err := json.Marshal(p)
		if err == nil {
			_ = json.Unmarshal(b, &out)
		}
	}
	out["event_type"] = string(e.Type)
	out["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	return out
}

// MarshalJSON implements json.Marshaler via ToMap, so an Event can be sent
// directly as an HTTP/WebSocket response body.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

// Decode dispatches on data's event_type field and reconstructs the
// corresponding Event. Returns ErrUnknownEventType when the discriminator is
// missing or unrecognized.
func Decode(data map[string]any) (Event, error) {
	rawType, ok := data["event_type"]
	if !ok {
		return Event{}, ErrUnknownEventType
	}
	typeStr, ok := rawType.(string)
	if !ok {
		return Event{}, ErrUnknownEventType
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("events: re-marshal payload: %w", err)
	}

	ts := now()
	if raw, ok := data["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			ts = parsed
		}
	}

	e := Event{Type: Type(typeStr), Timestamp: ts}
	switch e.Type {
	case TypeText:
		e.Text = &TextPayload{}
		err = json.Unmarshal(b, e.Text)
	case TypeToolCall:
		e.ToolCall = &ToolCallPayload{}
		err = json.Unmarshal(b, e.ToolCall)
	case TypeToolResult:
		e.ToolResult = &ToolResultPayload{}
		err = json.Unmarshal(b, e.ToolResult)
	case TypeHITLRequest:
		e.HITLRequest = &HITLRequestPayload{}
		err = json.Unmarshal(b, e.HITLRequest)
	case TypeTodoUpdate:
		e.TodoUpdate = &TodoUpdatePayload{}
		err = json.Unmarshal(b, e.TodoUpdate)
	case TypeFileOp:
		e.FileOp = &FileOperationPayload{}
		err = json.Unmarshal(b, e.FileOp)
	case TypeError:
		e.Error = &ErrorPayload{}
		err = json.Unmarshal(b, e.Error)
	case TypeDone:
		e.Done = &DonePayload{}
		err = json.Unmarshal(b, e.Done)
	case TypeStreamEnd:
		// no payload
	default:
		return Event{}, ErrUnknownEventType
	}
	if err != nil {
		return Event{}, fmt.Errorf("events: decode %s payload: %w", e.Type, err)
	}
	return e, nil
}

// DecodeJSON is a convenience wrapper around Decode for a raw JSON frame.
func DecodeJSON(raw []byte) (Event, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Event{}, fmt.Errorf("events: unmarshal frame: %w", err)
	}
	return Decode(m)
}

// Equal reports whether two events are semantically identical (used by
// round-trip tests): same type and the same JSON encoding of the payload.
// Timestamps are not compared.
func (e Event) Equal(other Event) bool {
	if e.Type != other.Type {
		return false
	}
	a, errA := json.Marshal(e.payload())
	b, errB := json.Marshal(other.payload())
	return errA == nil && errB == nil && string(a) == string(b)
}
