// Package rules implements the agent rule pipeline: load → match(context) →
// merge(sorted_matches) → conflict_report → compose_prompt_section. Rules
// scope a user's or session's instructions the way a project's CONTRIBUTING
// file scopes a human contributor's.
package rules

import "time"

// Scope is the level a rule is defined at. Higher scopes take precedence
// over lower ones during merge, regardless of declaration order.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
	ScopeSession Scope = "session"
)

// scopePriority ranks scopes for sorting; higher wins. Matches the spec's
// {global:1, user:2, project:3, session:4}.
var scopePriority = map[Scope]int{
	ScopeGlobal:  1,
	ScopeUser:    2,
	ScopeProject: 3,
	ScopeSession: 4,
}

// Inclusion determines when a rule is pulled into context.
type Inclusion string

const (
	InclusionAlways    Inclusion = "always"
	InclusionFileMatch Inclusion = "file_match"
	InclusionManual    Inclusion = "manual"
)

// Rule is one agent rule: a named block of instruction text scoped to a
// global/user/project/session level and conditionally included based on
// Inclusion.
type Rule struct {
	RuleID          string
	Scope           Scope
	ScopeID         string // user_id/project_id/session_id, empty for global
	Name            string
	Description     string
	Priority        int
	Inclusion       Inclusion
	FileMatchPattern string
	Content         string
	Override        bool
	Enabled         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MatchContext carries the request-scoped information rules are matched
// against.
type MatchContext struct {
	Files       []string
	Query       string
	SessionID   string
	AssistantID string
	ManualRefs  []string
}

// Match is one rule that matched, with the reason it matched and — for
// file_match rules — which files triggered it.
type Match struct {
	Rule         Rule
	Reason       string
	MatchedFiles []string
}

// Skip is one rule that did not match, with a human-readable reason.
type Skip struct {
	RuleName string
	Reason   string
}

// ConflictNote records one name-collision or override event encountered
// during merge.
type ConflictNote struct {
	RuleName string
	OtherName string
	Reason   string
}

// Conflict is a reported same-name conflict across all evaluated rules
// (independent of whether both sides ultimately matched).
type Conflict struct {
	Name         string
	Scopes       []Scope
	WinnerScope  Scope
	Resolution   string
}

// ConflictReport is the full output of the separate conflict-detection pass.
type ConflictReport struct {
	Conflicts []Conflict
	Warnings  []string
}

func (r ConflictReport) HasConflicts() bool { return len(r.Conflicts) > 0 }
