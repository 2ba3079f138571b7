package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/rules"
)

func TestDetectConflicts_SameNameAcrossScopes(t *testing.T) {
	report := rules.DetectConflicts([]rules.Rule{
		{Name: "style", Scope: rules.ScopeGlobal},
		{Name: "style", Scope: rules.ScopeSession},
	})
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, rules.ScopeSession, report.Conflicts[0].WinnerScope)
	assert.True(t, report.HasConflicts())
}

func TestDetectConflicts_ContradictoryWarning(t *testing.T) {
	report := rules.DetectConflicts([]rules.Rule{
		{Name: "must-review", Content: "you must always request human review before merging"},
		{Name: "no-review", Content: "review is never required for this repo"},
	})
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "must-review")
	assert.Contains(t, report.Warnings[0], "no-review")
}

func TestDetectConflicts_NoFalsePositiveOnUnrelatedContent(t *testing.T) {
	report := rules.DetectConflicts([]rules.Rule{
		{Name: "a", Content: "write small functions"},
		{Name: "b", Content: "prefer composition over inheritance"},
	})
	assert.Empty(t, report.Warnings)
	assert.Empty(t, report.Conflicts)
}
