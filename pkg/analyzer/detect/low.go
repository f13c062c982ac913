package detect

import (
	"strings"

	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// checkBroadCatch reports handlers of root exception types. Empty handlers
// are left to the empty-handler check.
func checkBroadCatch(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		if !rules.BroadCatch.MatchString(f.Code(i)) || HandlerIsEmpty(f, i) {
			continue
		}
		out = append(out, newFinding(rules.OverlyBroadCatch, f, i))
	}
	return out
}

// checkSecurityTodos reports TODO markers in comments that mention security
// work. Unlike the other checks it reads comment lines.
func checkSecurityTodos(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	r := rules.SecurityTodo
	for i := 0; i < f.Len(); i++ {
		if f.IsBlank(i) || f.IsTestCode(i) {
			continue
		}
		line := f.Line(i)
		loc := r.Pattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if !f.IsComment(i) && !inTrailingComment(line, loc[0]) {
			continue
		}
		if matches(r, f, i, line) {
			out = append(out, newFinding(r, f, i))
		}
	}
	return out
}

// inTrailingComment reports whether byte offset pos of line lies after a
// comment opener.
func inTrailingComment(line string, pos int) bool {
	prefix := line[:pos]
	return strings.Contains(prefix, "//") || strings.Contains(prefix, "#") || strings.Contains(prefix, "/*")
}

// checkDynamicLoading reports runtime code loading. Paths that are built at
// runtime, tainted or located on shared storage escalate the finding to high.
func checkDynamicLoading(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	r := rules.DynamicLoading
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) || !matches(r, f, i, f.Line(i)) {
			continue
		}
		line := f.Line(i)
		v := newFinding(r, f, i)

		_, _, tainted := in.Ctx.TaintedIn(line)
		if tainted || srcline.HasConcatenation(line) || srcline.ContainsAny(f.Lower(i), rules.DynamicPathTokens...) {
			v.Severity = severity.High
			v.Confidence = severity.ConfidenceHigh
			v.Description = r.Description + " The path is built at runtime or points to shared storage, so another app or a network attacker can replace the loaded code."
		}
		out = append(out, v)
	}
	return out
}
