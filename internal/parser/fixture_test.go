package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestParseFixtures snapshots the AST dump and diagnostics of representative
// scripts, pinning the parser's shape across refactors.
func TestParseFixtures(t *testing.T) {
	fixtures := []struct {
		name   string
		source string
	}{
		{
			name:   "pipeline",
			source: `"hello" -> .upper -> .split("L") => $parts`,
		},
		{
			name: "frontmatter_and_captures",
			source: "---\nname: demo\nversion: 1\n---\n" +
				"\"x\" => $v\n" +
				"\"val:{$v}\" -> .upper\n",
		},
		{
			name: "collections",
			source: "[1, 2, 3] -> map |x| ($x * 2) => $doubled\n" +
				"$doubled -> fold(0) { $@ + $ }\n" +
				"$doubled -> filter |x| ($x > 2)\n",
		},
		{
			name:   "dispatch_and_loop",
			source: "\"b\" -> [a: \"one\", b: \"two\"] ?? \"other\"\n0 -> ($ < 5) @ { $ + 1 }\n",
		},
		{
			name:   "annotated",
			source: "^(limit: 4, timeout: 250) [1, 2] -> map |x| ($x + 1)\n",
		},
		{
			name:   "destructure_slice",
			source: "$point -> *<x: number, y: number>\n\"abcdef\" -> /<1:4>\n",
		},
		{
			name:   "recovery",
			source: "[1, 2, 3\n\"ok\" -> .upper\n1 -> \"bad target\"\n",
		},
	}

	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			p := New(fixture.source, WithRecovery(true))
			script := p.ParseScript()

			var sb strings.Builder
			sb.WriteString("=== AST ===\n")
			if script.HasFrontmatter {
				fmt.Fprintf(&sb, "frontmatter: %q\n", script.Frontmatter)
			}
			for i, stmt := range script.Statements {
				fmt.Fprintf(&sb, "%02d: %s\n", i, stmt.String())
			}
			sb.WriteString("=== Diagnostics ===\n")
			for _, err := range p.Errors() {
				fmt.Fprintf(&sb, "%s %d:%d %s\n",
					err.Code, err.Span.Start.Line, err.Span.Start.Column, err.Message)
			}

			snaps.MatchSnapshot(t, sb.String())
		})
	}
}
