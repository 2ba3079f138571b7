package rules

import (
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchRules evaluates every rule against context, returning matched rules and
// skipped rules with reasons. Disabled rules are always skipped.
func MatchRules(allRules []Rule, context MatchContext) ([]Match, []Skip) {
	var matched []Match
	var skipped []Skip

	for _, rule := range allRules {
		if !rule.Enabled {
			skipped = append(skipped, Skip{RuleName: rule.Name, Reason: "disabled"})
			continue
		}

		m, reason := matchOne(rule, context)
		if m != nil {
			matched = append(matched, *m)
		} else {
			skipped = append(skipped, Skip{RuleName: rule.Name, Reason: reason})
		}
	}

	return matched, skipped
}

func matchOne(rule Rule, context MatchContext) (*Match, string) {
	switch rule.Inclusion {
	case InclusionAlways:
		return &Match{Rule: rule, Reason: "always included"}, ""

	case InclusionManual:
		for _, ref := range context.ManualRefs {
			if ref == rule.Name {
				return &Match{Rule: rule, Reason: "manually referenced"}, ""
			}
		}
		return nil, "not manually referenced"

	case InclusionFileMatch:
		if rule.FileMatchPattern == "" {
			return nil, "no file pattern specified"
		}
		files := matchFiles(rule.FileMatchPattern, context.Files)
		if len(files) > 0 {
			return &Match{Rule: rule, Reason: "file pattern matched: " + rule.FileMatchPattern, MatchedFiles: files}, ""
		}
		return nil, "no files matched pattern: " + rule.FileMatchPattern

	default:
		return nil, "unknown inclusion mode"
	}
}

// matchFiles matches pattern against files using glob semantics: literal
// */?/[…] per standard glob, a bare name matches either the full path or
// its trailing component, and a "**" token matches zero or more path
// segments (split into prefix/suffix around the first "**").
func matchFiles(pattern string, files []string) []string {
	var matched []string
	for _, file := range files {
		if fileMatchesPattern(pattern, file) {
			matched = append(matched, file)
		}
	}
	return matched
}

func fileMatchesPattern(pattern, file string) bool {
	if ok, _ := doublestar.Match(pattern, file); ok {
		return true
	}

	filename := path.Base(file)
	if ok, _ := doublestar.Match(pattern, filename); ok {
		return true
	}

	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		if len(parts) == 2 {
			prefix := strings.TrimSuffix(parts[0], "/")
			suffix := strings.TrimPrefix(parts[1], "/")
			if strings.HasPrefix(file, prefix) {
				rest := strings.TrimPrefix(strings.TrimPrefix(file, prefix), "/")
				if ok, _ := doublestar.Match("*"+suffix, rest); ok {
					return true
				}
			}
		}
	}

	return false
}

var manualRefPattern = regexp.MustCompile(`@([\w\-]+)`)

// ExtractManualReferences finds @token references in free text (token =
// letter/digit/-/_).
func ExtractManualReferences(text string) []string {
	matches := manualRefPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

var (
	backtickFilePattern = regexp.MustCompile("`([^`]+\\.\\w+)`")
	filePrefixPattern   = regexp.MustCompile(`file:(\S+)`)
	pathPrefixPattern   = regexp.MustCompile(`path:(\S+)`)
)

// ExtractFileReferences finds backtick-quoted "….<ext>" paths and
// file:/path: prefixed tokens in free text.
func ExtractFileReferences(text string) []string {
	var out []string
	for _, m := range backtickFilePattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range filePrefixPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range pathPrefixPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
