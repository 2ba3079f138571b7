package rules

import (
	"fmt"
	"sort"
	"strings"
)

// contradictionPairs are keyword sets whose simultaneous presence across
// two rules' content raises a heuristic warning. These are advisory only —
// they never alter merge output.
var contradictionPairs = [][2][]string{
	{{"always", "must", "required"}, {"never", "forbidden", "prohibited"}},
	{{"enable", "allow", "permit"}, {"disable", "deny", "block"}},
	{{"include", "add"}, {"exclude", "remove"}},
}

// DetectConflicts groups all evaluated rules by name (same_name conflicts,
// winner = highest scope priority then highest rule priority) and
// separately raises contradictory warnings when two rules' content contain
// opposing keyword sets. Conflicts never alter Merge's output; this is a
// reporting-only pass.
func DetectConflicts(allRules []Rule) ConflictReport {
	report := ConflictReport{}

	byName := make(map[string][]Rule)
	var names []string
	for _, rule := range allRules {
		if _, ok := byName[rule.Name]; !ok {
			names = append(names, rule.Name)
		}
		byName[rule.Name] = append(byName[rule.Name], rule)
	}
	sort.Strings(names)

	for _, name := range names {
		group := byName[name]
		if len(group) <= 1 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			pi, pj := scopePriority[group[i].Scope], scopePriority[group[j].Scope]
			if pi != pj {
				return pi > pj
			}
			return group[i].Priority > group[j].Priority
		})
		winner := group[0]
		scopes := make([]Scope, len(group))
		for i, r := range group {
			scopes[i] = r.Scope
		}
		report.Conflicts = append(report.Conflicts, Conflict{
			Name:        name,
			Scopes:      scopes,
			WinnerScope: winner.Scope,
			Resolution:  fmt.Sprintf("using %s scope (highest priority)", winner.Scope),
		})
	}

	for i := 0; i < len(allRules); i++ {
		c1 := strings.ToLower(allRules[i].Content)
		for j := i + 1; j < len(allRules); j++ {
			c2 := strings.ToLower(allRules[j].Content)
			if warning := contradictionWarning(allRules[i], c1, allRules[j], c2); warning != "" {
				report.Warnings = append(report.Warnings, warning)
				break
			}
		}
	}

	return report
}

func contradictionWarning(r1 Rule, content1 string, r2 Rule, content2 string) string {
	for _, pair := range contradictionPairs {
		positive, negative := pair[0], pair[1]
		has1Pos, has1Neg := containsAny(content1, positive), containsAny(content1, negative)
		has2Pos, has2Neg := containsAny(content2, positive), containsAny(content2, negative)

		if (has1Pos && has2Neg) || (has1Neg && has2Pos) {
			return fmt.Sprintf(
				"potential contradiction between %q (%s) and %q (%s): rules may have conflicting instructions",
				r1.Name, r1.Scope, r2.Name, r2.Scope,
			)
		}
	}
	return ""
}

func containsAny(content string, words []string) bool {
	for _, w := range words {
		if strings.Contains(content, w) {
			return true
		}
	}
	return false
}
