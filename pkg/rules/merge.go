package rules

import (
	"fmt"
	"sort"
	"strings"
)

// Merger sorts matched rules by precedence, resolves name collisions, and
// enforces a total content size bound.
type Merger struct {
	MaxContentSize int
}

// NewMerger constructs a Merger bounded by maxContentSize characters of
// combined rule content.
func NewMerger(maxContentSize int) *Merger {
	return &Merger{MaxContentSize: maxContentSize}
}

// Merge sorts matches by (scope priority desc, rule priority desc, name
// asc), then scans in order keeping one rule per name: a later rule with
// Override=true replaces the earlier one (noted as "overridden by
// <scope>"); a later rule without Override is dropped, noted as "duplicate
// name, keeping <winning_scope>", or as "overridden by <winning_scope>" when
// the kept rule itself has Override=true. The result is truncated once the
// running content size would exceed MaxContentSize.
func (m *Merger) Merge(matches []Match) ([]Rule, []ConflictNote) {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Rule, sorted[j].Rule
		pi, pj := scopePriority[ri.Scope], scopePriority[rj.Scope]
		if pi != pj {
			return pi > pj
		}
		if ri.Priority != rj.Priority {
			return ri.Priority > rj.Priority
		}
		return ri.Name < rj.Name
	})

	var final []Rule
	seen := make(map[string]Rule)
	var notes []ConflictNote

	for _, match := range sorted {
		rule := match.Rule
		existing, ok := seen[rule.Name]
		if !ok {
			final = append(final, rule)
			seen[rule.Name] = rule
			continue
		}

		if rule.Override {
			filtered := final[:0:0]
			for _, r := range final {
				if r.Name != rule.Name {
					filtered = append(filtered, r)
				}
			}
			final = append(filtered, rule)
			seen[rule.Name] = rule
			notes = append(notes, ConflictNote{
				RuleName:  rule.Name,
				OtherName: existing.Name,
				Reason:    fmt.Sprintf("overridden by %s", rule.Scope),
			})
			continue
		}

		reason := fmt.Sprintf("duplicate name, keeping %s scope", existing.Scope)
		if existing.Override {
			reason = fmt.Sprintf("overridden by %s", existing.Scope)
		}
		notes = append(notes, ConflictNote{
			RuleName:  rule.Name,
			OtherName: existing.Name,
			Reason:    reason,
		})
	}

	final = m.truncate(final)
	return final, notes
}

func (m *Merger) truncate(sortedRules []Rule) []Rule {
	if m.MaxContentSize <= 0 {
		return sortedRules
	}

	var result []Rule
	total := 0
	for _, rule := range sortedRules {
		size := len(rule.Content)
		if total+size > m.MaxContentSize {
			break
		}
		result = append(result, rule)
		total += size
	}
	return result
}

// BuildPromptSection renders rules as a system-prompt section: a header,
// then per rule "### <name>\n*<description>*\n<content>\n". An empty list
// yields an empty string.
func BuildPromptSection(rulesList []Rule) string {
	if len(rulesList) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Agent Rules\n\n")
	b.WriteString("The following rules guide your behavior:\n\n")
	for _, rule := range rulesList {
		fmt.Fprintf(&b, "### %s\n", rule.Name)
		fmt.Fprintf(&b, "*%s*\n", rule.Description)
		b.WriteString(rule.Content)
		b.WriteString("\n")
	}
	return b.String()
}
