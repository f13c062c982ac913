package detect

import (
	"fmt"
	"strings"

	"github.com/exploopio/codeguard/pkg/analyzer/dataflow"
	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Identifier suffixes that name a credential-related UI element or setting
// rather than the credential itself.
var nonSecretSuffixes = []string{
	"hint", "label", "field", "type", "url", "uri", "name", "prompt", "placeholder", "message",
	"error", "length", "pattern", "regex", "header", "title", "text", "id", "key_name", "endpoint",
	"path", "format", "policy", "expiry", "expires", "ttl",
}

// checkSecrets reports vendor token shapes and generic credential
// assignments. A line carrying a vendor token is not reported again by the
// generic rule.
func checkSecrets(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		line := f.Line(i)

		vendor := false
		for _, r := range rules.VendorSecrets {
			if vendorToken(r, line) {
				out = append(out, newFinding(r, f, i))
				vendor = true
			}
		}
		if vendor {
			continue
		}

		if isGenericSecret(line) {
			out = append(out, newFinding(rules.GenericSecret, f, i))
		}
	}
	return out
}

// IsHardcodedSecret reports whether line carries a vendor token or assigns a
// credential-like literal.
func IsHardcodedSecret(line string) bool {
	for _, r := range rules.VendorSecrets {
		if vendorToken(r, line) {
			return true
		}
	}
	return isGenericSecret(line)
}

// vendorToken reports whether line holds a token of r's shape that r does
// not exclude.
func vendorToken(r rules.Rule, line string) bool {
	if r.Exclude == nil {
		return r.Pattern.MatchString(line)
	}
	for _, tok := range r.Pattern.FindAllString(line, -1) {
		if !r.Exclude.MatchString(tok) {
			return true
		}
	}
	return false
}

func isGenericSecret(line string) bool {
	m := rules.GenericSecret.Pattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	name, value := strings.ToLower(m[1]), strings.ToLower(m[2])
	for _, s := range nonSecretSuffixes {
		if strings.HasSuffix(name, s) {
			return false
		}
	}
	if srcline.ContainsAny(value, rules.SecretPlaceholders...) {
		return false
	}
	return !repeatedChar(value)
}

// repeatedChar reports whether s consists of a single repeated character.
func repeatedChar(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// checkInjection reports SQL, command and path injection. A line is
// attributed to the first sink it matches and reported when the sink
// argument is built dynamically or references a tainted variable, unless a
// sanitizer appears nearby.
func checkInjection(in *Input) []model.Vulnerability {
	var out []model.Vulnerability
	f := in.File
	for i := 0; i < f.Len(); i++ {
		if f.Skip(i) {
			continue
		}
		line := f.Line(i)
		if isDeclaration(line) {
			continue
		}

		for _, s := range rules.InjectionSinks {
			if !s.Pattern.MatchString(line) || (s.Exclude != nil && s.Exclude.MatchString(line)) {
				continue
			}
			if v, ok := injectionFinding(in, s, i); ok {
				out = append(out, v)
			}
			break
		}
	}
	return out
}

func injectionFinding(in *Input, s rules.Sink, i int) (model.Vulnerability, bool) {
	f := in.File
	line := f.Line(i)

	concat := srcline.HasConcatenation(line)
	name, kind, tainted := in.Ctx.TaintedIn(line)
	if !concat && !tainted {
		return model.Vulnerability{}, false
	}
	if !concat && s.Placeholder != nil && hasPlaceholder(line, s) {
		return model.Vulnerability{}, false
	}
	if f.NearAny(i, s.Before, s.After, s.Sanitizers...) {
		return model.Vulnerability{}, false
	}

	v := model.Vulnerability{
		Severity:   s.Severity,
		Category:   s.Category,
		Title:      s.Title,
		Line:       i + 1,
		Snippet:    srcline.Redact(line),
		Fix:        s.Fix,
		Confidence: severity.ConfidenceMedium,
	}
	switch {
	case tainted:
		v.Description = fmt.Sprintf(
			"The %s is built from user input (%s `%s`) and passed to a sensitive API without sanitization. An attacker who controls this value can change the %s.",
			s.Subject, kind, name, s.Subject)
		if kind == dataflow.KindInput || concat {
			v.Confidence = severity.ConfidenceHigh
		}
	default:
		v.Description = fmt.Sprintf(
			"The %s is built with string concatenation or interpolation. If any part of it comes from outside the program, an attacker can change the %s.",
			s.Subject, s.Subject)
	}
	return v, true
}

func hasPlaceholder(line string, s rules.Sink) bool {
	for _, lit := range srcline.QuotedLiterals(line) {
		if s.Placeholder.MatchString(lit) {
			return true
		}
	}
	return false
}
