package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northfold/agentrelay/pkg/rules"
)

func TestMatchRules_AlwaysIncluded(t *testing.T) {
	r := rules.Rule{Name: "base", Inclusion: rules.InclusionAlways, Enabled: true}
	matched, skipped := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{})
	assert.Len(t, matched, 1)
	assert.Empty(t, skipped)
}

func TestMatchRules_DisabledIsSkipped(t *testing.T) {
	r := rules.Rule{Name: "base", Inclusion: rules.InclusionAlways, Enabled: false}
	matched, skipped := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{})
	assert.Empty(t, matched)
	require := assert.New(t)
	require.Len(skipped, 1)
	require.Equal("disabled", skipped[0].Reason)
}

func TestMatchRules_ManualOnlyWhenReferenced(t *testing.T) {
	r := rules.Rule{Name: "security", Inclusion: rules.InclusionManual, Enabled: true}

	matched, _ := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{ManualRefs: []string{"security"}})
	assert.Len(t, matched, 1)

	matched, skipped := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{})
	assert.Empty(t, matched)
	assert.Equal(t, "not manually referenced", skipped[0].Reason)
}

func TestMatchRules_FileMatchFullPath(t *testing.T) {
	r := rules.Rule{Name: "go-style", Inclusion: rules.InclusionFileMatch, FileMatchPattern: "*.go", Enabled: true}
	matched, _ := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{Files: []string{"main.go"}})
	assert.Len(t, matched, 1)
	assert.Equal(t, []string{"main.go"}, matched[0].MatchedFiles)
}

func TestMatchRules_FileMatchTrailingComponent(t *testing.T) {
	r := rules.Rule{Name: "go-style", Inclusion: rules.InclusionFileMatch, FileMatchPattern: "*.go", Enabled: true}
	matched, _ := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{Files: []string{"pkg/store/session.go"}})
	assert.Len(t, matched, 1)
}

func TestMatchRules_FileMatchDoubleStarPrefixSuffix(t *testing.T) {
	r := rules.Rule{Name: "ts-style", Inclusion: rules.InclusionFileMatch, FileMatchPattern: "src/**/*.ts", Enabled: true}
	matched, _ := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{Files: []string{"src/foo/bar.ts"}})
	assert.Len(t, matched, 1)
}

func TestMatchRules_FileMatchNoFiles(t *testing.T) {
	r := rules.Rule{Name: "go-style", Inclusion: rules.InclusionFileMatch, FileMatchPattern: "*.go", Enabled: true}
	matched, skipped := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{Files: []string{"README.md"}})
	assert.Empty(t, matched)
	assert.Contains(t, skipped[0].Reason, "no files matched pattern")
}

func TestMatchRules_FileMatchMissingPattern(t *testing.T) {
	r := rules.Rule{Name: "broken", Inclusion: rules.InclusionFileMatch, Enabled: true}
	matched, skipped := rules.MatchRules([]rules.Rule{r}, rules.MatchContext{Files: []string{"a.go"}})
	assert.Empty(t, matched)
	assert.Equal(t, "no file pattern specified", skipped[0].Reason)
}

func TestExtractManualReferences(t *testing.T) {
	refs := rules.ExtractManualReferences("please follow @security-review and @go-style here")
	assert.ElementsMatch(t, []string{"security-review", "go-style"}, refs)
}

func TestExtractFileReferences(t *testing.T) {
	text := "see `main.go`, file:pkg/store/session.go and path:pkg/rules/matcher.go"
	refs := rules.ExtractFileReferences(text)
	assert.ElementsMatch(t, []string{"main.go", "pkg/store/session.go", "pkg/rules/matcher.go"}, refs)
}
