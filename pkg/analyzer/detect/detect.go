// Package detect runs the vulnerability checkers over a source file.
//
// Every checker is a pure function from the scan input to the findings it
// produced. Checkers never see each other's output; Run concatenates their
// results in tier order (critical, high, medium, low) and leaves
// deduplication and sorting to the caller.
package detect

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/analyzer/dataflow"
	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Input is what every checker reads.
type Input struct {
	File *srcline.File
	Ctx  *dataflow.Context
}

// NewInput splits code and builds its data-flow context.
func NewInput(code string) *Input {
	f := srcline.New(code)
	return &Input{File: f, Ctx: dataflow.Build(f)}
}

// Check is one independent checker.
type Check struct {
	Name string
	Tier severity.Level
	Run  func(in *Input) []model.Vulnerability
}

// Checks returns every checker in execution order.
func Checks() []Check {
	return []Check{
		// Critical
		{Name: "hardcoded-secrets", Tier: severity.Critical, Run: checkSecrets},
		{Name: "injection", Tier: severity.Critical, Run: checkInjection},
		{Name: "insecure-deserialization", Tier: severity.Critical, Run: ruleCheck(rules.Deserialization)},
		{Name: "xxe", Tier: severity.Critical, Run: ruleCheck(rules.XXE)},

		// High
		{Name: "sensitive-logging", Tier: severity.High, Run: checkSensitiveLogging},
		{Name: "insecure-http", Tier: severity.High, Run: checkInsecureHTTP},
		{Name: "tls-validation", Tier: severity.High, Run: ruleCheck(rules.TLSBypass)},
		{Name: "empty-exception-handler", Tier: severity.High, Run: checkEmptyHandlers},
		{Name: "webview", Tier: severity.High, Run: groupCheck(rules.WebView)},
		{Name: "debuggable", Tier: severity.High, Run: ruleCheck(rules.Debuggable)},
		{Name: "open-redirect", Tier: severity.High, Run: checkOpenRedirect},
		{Name: "exported-components", Tier: severity.High, Run: groupCheck(rules.Components)},
		{Name: "cleartext-traffic", Tier: severity.High, Run: ruleCheck(rules.CleartextTraffic)},

		// Medium
		{Name: "weak-crypto", Tier: severity.Medium, Run: groupCheck(rules.Crypto)},
		{Name: "insecure-random", Tier: severity.Medium, Run: ruleCheck(rules.InsecureRandom)},
		{Name: "insecure-storage", Tier: severity.Medium, Run: groupCheck(rules.Storage)},
		{Name: "hardcoded-ip", Tier: severity.Medium, Run: checkHardcodedIP},
		{Name: "null-safety", Tier: severity.Medium, Run: checkNullSafety},
		{Name: "clipboard", Tier: severity.Medium, Run: ruleCheck(rules.Clipboard)},
		{Name: "deep-link", Tier: severity.Medium, Run: ruleCheck(rules.DeepLink)},
		{Name: "key-size", Tier: severity.Medium, Run: checkKeySize},
		{Name: "hardcoded-iv", Tier: severity.Medium, Run: ruleCheck(rules.HardcodedIV)},

		// Low
		{Name: "broad-exception", Tier: severity.Low, Run: checkBroadCatch},
		{Name: "security-todo", Tier: severity.Low, Run: checkSecurityTodos},
		{Name: "intent-data", Tier: severity.Low, Run: ruleCheck(rules.ExtraData)},
		{Name: "build-configuration", Tier: severity.Low, Run: groupCheck(rules.Configuration)},
		{Name: "reflection", Tier: severity.Low, Run: ruleCheck(rules.Reflection)},
		{Name: "dynamic-code-loading", Tier: severity.Low, Run: checkDynamicLoading},
	}
}

// CheckCount is the number of checkers Run executes.
var CheckCount = len(Checks())

// Run executes every checker against in and concatenates their findings.
func Run(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	for _, c := range Checks() {
		out = append(out, c.Run(in)...)
	}
	return out
}

// =============================================================================
// Rule table helpers
// =============================================================================

// newFinding builds a finding for line index i from a rule's text.
func newFinding(r rules.Rule, f *srcline.File, i int) model.Vulnerability {
	return model.Vulnerability{
		Severity:    r.Severity,
		Category:    r.Category,
		Title:       r.Title,
		Description: r.Description,
		Line:        i + 1,
		Snippet:     srcline.Redact(f.Line(i)),
		Fix:         r.Fix,
		Confidence:  r.Confidence,
	}
}

// matches applies a rule's pattern, exclusion and window gates to text,
// which is line i or a transformed version of it.
func matches(r rules.Rule, f *srcline.File, i int, text string) bool {
	if r.Pattern == nil || !r.Pattern.MatchString(text) {
		return false
	}
	if r.Exclude != nil && r.Exclude.MatchString(text) {
		return false
	}
	if len(r.Require) > 0 {
		if r.RequireOnLine {
			if !srcline.ContainsAny(f.Lower(i), r.Require...) {
				return false
			}
		} else if !f.NearAny(i, r.Before, r.After, r.Require...) {
			return false
		}
	}
	if len(r.Suppress) > 0 && f.NearAny(i, r.Before, r.After, r.Suppress...) {
		return false
	}
	return true
}

// scanRule reports every non-skipped line matching r.
func scanRule(in *Input, r rules.Rule) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		if matches(r, f, i, f.Line(i)) {
			out = append(out, newFinding(r, f, i))
		}
	}
	return out
}

func ruleCheck(r rules.Rule) func(*Input) []model.Vulnerability {
	return func(in *Input) []model.Vulnerability {
		return scanRule(in, r)
	}
}

func groupCheck(g rules.Group) func(*Input) []model.Vulnerability {
	return func(in *Input) []model.Vulnerability {
		var out []model.Vulnerability
		for _, r := range g.Rules {
			out = append(out, scanRule(in, r)...)
		}
		return out
	}
}

var declarationPattern = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|override|suspend|async|export|inline|open)\s+)*(?:fun|func|def|function)\b`)

// isDeclaration reports whether line declares a function.
func isDeclaration(line string) bool {
	return declarationPattern.MatchString(line)
}
