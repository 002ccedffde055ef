package gitignore

import (
	"bufio"
	"io"
	"strings"
)

// Decision is the three-valued outcome of applying a filter to a path.
type Decision int

const (
	// Neutral means no pattern applied; git treats a path that was
	// never matched as included.
	Neutral Decision = iota
	// Exclude marks the path ignored.
	Exclude
	// Include marks the path explicitly re-included by a negation.
	Include
)

func (d Decision) String() string {
	switch d {
	case Exclude:
		return "exclude"
	case Include:
		return "include"
	default:
		return "neutral"
	}
}

// Filter folds a prior decision and a path into a new decision. Filters
// are pure; composing them is a left fold over the running decision.
type Filter func(prior Decision, path string) Decision

// NeutralFilter passes the prior decision through unchanged.
func NeutralFilter() Filter {
	return func(prior Decision, _ string) Decision {
		return prior
	}
}

// ExcludeFilter excludes paths matching any of the patterns and passes
// everything else through.
func ExcludeFilter(patterns []string) Filter {
	return matchFilter(patterns, Exclude)
}

// IncludeFilter explicitly includes paths matching any of the patterns
// and passes everything else through.
func IncludeFilter(patterns []string) Filter {
	return matchFilter(patterns, Include)
}

func matchFilter(patterns []string, d Decision) Filter {
	return func(prior Decision, path string) Decision {
		for _, p := range patterns {
			if Match(p, path) {
				return d
			}
		}

		return prior
	}
}

// CombineFilters folds the filters left to right, feeding each one the
// running decision.
func CombineFilters(filters ...Filter) Filter {
	return func(prior Decision, path string) Decision {
		d := prior
		for _, f := range filters {
			if f == nil {
				continue
			}
			d = f(d, path)
		}

		return d
	}
}

// ignoreRule is one line of a gitignore stream; negated rules re-include.
type ignoreRule struct {
	pattern string
	negate  bool
}

// NewFilterFromReader parses a gitignore stream into a filter. Later
// patterns override earlier ones; a pattern starting with `!`
// re-includes on match.
func NewFilterFromReader(r io.Reader) (Filter, error) {
	var rules []ignoreRule

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := ignoreRule{pattern: line}
		if strings.HasPrefix(line, "!") {
			rule.negate = true
		}

		rules = append(rules, rule)
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return func(prior Decision, path string) Decision {
		d := prior
		for _, rule := range rules {
			if !Match(rule.pattern, path) {
				continue
			}

			if rule.negate {
				d = Include
			} else {
				d = Exclude
			}
		}

		return d
	}, nil
}

// commonIgnorePatterns are build outputs, editor droppings and other
// artefacts that are near-universally ignored.
var commonIgnorePatterns = []string{
	"bin/", "obj/", "build/", "out/", "target/", "dist/",
	"node_modules/", "packages/", "vendor/",
	"*.log", "logs/",
	"*.tmp", "*.temp", "*.swp", "*.bak", "*~",
	".vs/", ".vscode/", ".idea/",
	"*.suo", "*.user",
	".DS_Store", "Thumbs.db", "Desktop.ini",
}

// CommonIgnoreFilter excludes the common build and editor artefact set.
func CommonIgnoreFilter() Filter {
	return ExcludeFilter(commonIgnorePatterns)
}
