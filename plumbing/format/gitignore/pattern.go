// Package gitignore implements gitignore pattern matching and the
// three-valued filters the working-directory engine composes out of them.
package gitignore

import "strings"

// Match reports whether path matches the gitignore pattern.
//
// Pattern semantics follow gitignore: blank lines and comments never
// match, a trailing slash restricts the pattern to directories, a leading
// slash anchors it at the root, a pattern without slashes is tried
// against every path segment, and `*`, `**`, `?`, character classes and
// backslash escapes are honoured. A leading `!` (negation, meaningful to
// the filters built on top) is stripped before matching.
func Match(pattern, path string) bool {
	pattern = strings.TrimSuffix(pattern, "\r")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return false
	}

	pattern = strings.TrimPrefix(pattern, "!")
	if strings.TrimSpace(pattern) == "" {
		return false
	}

	// Normalise separators and collapse doubled slashes in the pattern.
	pattern = strings.ReplaceAll(pattern, "\\\\", "\x00")
	pattern = strings.ReplaceAll(pattern, "//", "/")
	pattern = strings.ReplaceAll(pattern, "\x00", "\\\\")

	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimSuffix(path, "/")
	path = strings.TrimPrefix(path, "/")

	dirOnly := strings.HasSuffix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")

	if pattern == "" || path == "" {
		return false
	}

	segments := strings.Split(path, "/")

	if !anchored && !strings.Contains(pattern, "/") {
		// Segment patterns match anywhere in the path. A directory-only
		// pattern needs the matched segment to have children.
		for i, s := range segments {
			if !matchSegment(pattern, s) {
				continue
			}

			if !dirOnly || i < len(segments)-1 {
				return true
			}
		}

		return false
	}

	patSegs := strings.Split(pattern, "/")
	if !dirOnly {
		return matchSegments(patSegs, segments)
	}

	// A directory-only pattern matches everything below the directory,
	// so try every strict ancestor of the path.
	for i := len(segments) - 1; i > 0; i-- {
		if matchSegments(patSegs, segments[:i]) {
			return true
		}
	}

	return false
}

// matchSegments matches a slash-split pattern against a slash-split path,
// expanding `**` to zero or more whole segments.
func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	if pattern[0] == "**" {
		// Zero segments first, then one more for every tail position.
		for i := 0; i <= len(path); i++ {
			if matchSegments(pattern[1:], path[i:]) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 {
		return false
	}

	return matchSegment(pattern[0], path[0]) && matchSegments(pattern[1:], path[1:])
}

// matchSegment matches a single pattern segment against a single path
// segment. Wildcards never match a slash, which cannot appear within a
// segment anyway.
func matchSegment(pattern, s string) bool {
	return matchChars(pattern, s)
}

func matchChars(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Collapse runs of stars, then backtrack.
			rest := strings.TrimLeft(pattern, "*")
			for i := len(s); i >= 0; i-- {
				if matchChars(rest, s[i:]) {
					return true
				}
			}
			return false

		case '?':
			if len(s) == 0 {
				return false
			}
			pattern = pattern[1:]
			s = s[1:]

		case '[':
			ok, rest := matchClass(pattern, s)
			if !ok {
				return false
			}
			pattern = rest
			s = s[1:]

		case '\\':
			if len(pattern) < 2 || len(s) == 0 || pattern[1] != s[0] {
				return false
			}
			pattern = pattern[2:]
			s = s[1:]

		default:
			if len(s) == 0 || pattern[0] != s[0] {
				return false
			}
			pattern = pattern[1:]
			s = s[1:]
		}
	}

	return len(s) == 0
}

// matchClass matches a [...] character class against the first byte of s,
// returning the remaining pattern after the class. A class with no
// closing bracket never matches.
func matchClass(pattern, s string) (bool, string) {
	end := classEnd(pattern)
	if end < 0 || len(s) == 0 {
		return false, ""
	}

	class := pattern[1:end]
	rest := pattern[end+1:]

	negate := false
	if strings.HasPrefix(class, "!") || strings.HasPrefix(class, "^") {
		negate = true
		class = class[1:]
	}

	c := s[0]
	if c == '/' {
		return false, ""
	}

	matched := false
	for i := 0; i < len(class); i++ {
		if class[i] == '\\' && i+1 < len(class) {
			i++
			if class[i] == c {
				matched = true
			}
			continue
		}

		if i+2 < len(class) && class[i+1] == '-' {
			if class[i] <= c && c <= class[i+2] {
				matched = true
			}
			i += 2
			continue
		}

		if class[i] == c {
			matched = true
		}
	}

	return matched != negate, rest
}

func classEnd(pattern string) int {
	for i := 1; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case ']':
			if i > 1 {
				return i
			}
		}
	}

	return -1
}
