// Package events defines the wire-level event model emitted by an agent
// executor over the course of a turn: text deltas, tool calls/results, HITL
// requests, task-plan updates, file operations, errors and the terminal
// completion event.
//
// Every event carries an event_type discriminator and a monotonic timestamp.
// Encoding is lossless per variant and the discriminator is authoritative for
// routing — decoding dispatches purely on event_type, never on shape sniffing.
package events

// Type is the event_type discriminator carried by every event.
type Type string

const (
	TypeText         Type = "text"
	TypeToolCall     Type = "tool_call"
	TypeToolResult   Type = "tool_result"
	TypeHITLRequest  Type = "hitl_request"
	TypeTodoUpdate   Type = "todo_update"
	TypeFileOp       Type = "file_operation"
	TypeError        Type = "error"
	TypeDone         Type = "done"
	TypeStreamEnd    Type = "stream_end"
)

// ToolResultStatus is the status field of a ToolResult event.
type ToolResultStatus string

const (
	ToolResultSuccess ToolResultStatus = "success"
	ToolResultError   ToolResultStatus = "error"
)

// FileOpStatus is the status field of a FileOperation event.
type FileOpStatus string

const (
	FileOpStatusSuccess FileOpStatus = "success"
	FileOpStatusError   FileOpStatus = "error"
)

// TodoStatus is the status of a single todo item inside a TodoUpdate event.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Todo is a single item in a TodoUpdate event's plan.
type Todo struct {
	ID     string     `json:"id"`
	Text   string     `json:"text"`
	Status TodoStatus `json:"status"`
}

// ActionRequest describes a single tool invocation awaiting human approval,
// carried inside a HITLRequest event.
type ActionRequest struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
	CallID   string         `json:"call_id"`
}

// TokenUsage is the optional token accounting attached to a Done event.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FileOpMetrics carries the size/line-count deltas of a FileOperation event.
type FileOpMetrics struct {
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
	BytesChanged int `json:"bytes_changed"`
}
