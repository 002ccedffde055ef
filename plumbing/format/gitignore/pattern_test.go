package gitignore

import "testing"

func TestMatchLiteral(t *testing.T) {
	if !Match("value", "value") {
		t.Errorf("expected match")
	}
}

func TestMatchSegmentAnywhere(t *testing.T) {
	if !Match("value", "head/value/tail") {
		t.Errorf("expected match in the middle")
	}
	if !Match("value", "head/value") {
		t.Errorf("expected match at end")
	}
	if !Match("value", "value/tail") {
		t.Errorf("expected match at start")
	}
}

func TestMatchSegmentMismatch(t *testing.T) {
	if Match("value", "head/val/tail") {
		t.Errorf("expected no match for shorter segment")
	}
	if Match("val", "head/value/tail") {
		t.Errorf("expected no match for longer segment")
	}
}

func TestMatchBlankAndComment(t *testing.T) {
	if Match("", "anything") {
		t.Errorf("blank pattern must not match")
	}
	if Match("# comment", "anything") {
		t.Errorf("comment must not match")
	}
}

func TestMatchNegationStripped(t *testing.T) {
	if !Match("!keep.log", "keep.log") {
		t.Errorf("negated pattern should match its path")
	}
}

func TestMatchAsterisk(t *testing.T) {
	if !Match("*.log", "debug.log") {
		t.Errorf("expected *.log to match debug.log")
	}
	if !Match("v*o", "vulkano") {
		t.Errorf("expected v*o to match vulkano")
	}
	if !Match("v*", "v") {
		t.Errorf("* should match the empty run")
	}
}

func TestMatchAsteriskNeverCrossesSlash(t *testing.T) {
	if Match("/a*c", "a/c") {
		t.Errorf("* must not match a slash")
	}
}

func TestMatchQuestionMark(t *testing.T) {
	if !Match("vul?ano", "vulkano") {
		t.Errorf("expected single-char match")
	}
	if Match("vul?ano", "vulano") {
		t.Errorf("? must consume exactly one character")
	}
}

func TestMatchCharacterClass(t *testing.T) {
	if !Match("file[abc].txt", "filea.txt") {
		t.Errorf("expected class member to match")
	}
	if Match("file[abc].txt", "filed.txt") {
		t.Errorf("expected non-member not to match")
	}
	if !Match("file[a-c].txt", "fileb.txt") {
		t.Errorf("expected range member to match")
	}
	if !Match("file[!abc].txt", "filed.txt") {
		t.Errorf("expected negated class to match non-member")
	}
	if Match("file[abc.txt", "filea.txt") {
		t.Errorf("missing ] must be a non-match")
	}
}

func TestMatchEscape(t *testing.T) {
	if !Match(`\*.log`, "*.log") {
		t.Errorf("escaped star is literal")
	}
	if Match(`\*.log`, "debug.log") {
		t.Errorf("escaped star must not act as wildcard")
	}
}

func TestMatchAnchored(t *testing.T) {
	if !Match("/build", "build") {
		t.Errorf("anchored pattern matches at root")
	}
	if Match("/build", "sub/build") {
		t.Errorf("anchored pattern must not match below root")
	}
}

func TestMatchWholePath(t *testing.T) {
	if !Match("a/b/c", "a/b/c") {
		t.Errorf("expected whole-path match")
	}
	if Match("a/b/c", "x/a/b/c") {
		t.Errorf("pattern with slash is root-anchored")
	}
}

func TestMatchDoubleStar(t *testing.T) {
	if !Match("a/**/c", "a/c") {
		t.Errorf("** matches zero segments")
	}
	if !Match("a/**/c", "a/b/c") {
		t.Errorf("** matches one segment")
	}
	if !Match("a/**/c", "a/b1/b2/c") {
		t.Errorf("** matches several segments")
	}
	if !Match("**/c", "a/b/c") {
		t.Errorf("leading ** matches ancestors")
	}
	if !Match("a/**", "a/b/c") {
		t.Errorf("trailing ** matches descendants")
	}
}

func TestMatchDirOnly(t *testing.T) {
	if !Match("temp/", "temp/file.txt") {
		t.Errorf("dir pattern matches contents")
	}
	if !Match("temp/", "a/temp/file.txt") {
		t.Errorf("unanchored dir pattern matches anywhere")
	}
	if Match("temp/", "temp") {
		t.Errorf("dir pattern must not match a path not known to be a directory")
	}
}

func TestMatchBackslashNormalised(t *testing.T) {
	if !Match("*.log", `dir\debug.log`) {
		t.Errorf("backslashes in paths are treated as slashes")
	}
}

func TestMatchTrailingSlashOnPath(t *testing.T) {
	if !Match("build", "build/") {
		t.Errorf("trailing slash on path is trimmed")
	}
}
