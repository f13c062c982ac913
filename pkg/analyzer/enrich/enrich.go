// Package enrich deduplicates raw detector output and attaches OWASP, CWE
// and CVSS classification to every finding.
//
// All lookups are pure table walks. Findings are never modified in place:
// Enrich returns new values built with the model's copy helpers.
package enrich

import (
	"github.com/exploopio/codeguard/pkg/model"
)

type dedupKey struct {
	line  int
	title string
}

// Dedupe drops findings that repeat an earlier (line, title) pair. The first
// occurrence wins and the relative order of the survivors is kept.
func Dedupe(vs []model.Vulnerability) []model.Vulnerability {
	seen := make(map[dedupKey]struct{}, len(vs))
	out := make([]model.Vulnerability, 0, len(vs))
	for _, v := range vs {
		k := dedupKey{line: v.Line, title: v.Title}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Enrich returns a copy of vs with classification and CVSS fields set.
func Enrich(vs []model.Vulnerability) []model.Vulnerability {
	out := make([]model.Vulnerability, len(vs))
	for i, v := range vs {
		c := Classify(v.Category, v.Title)
		score, vector := CVSS(v.Title, v.Severity)
		out[i] = v.WithClassification(c.OWASP, c.CWE).WithCVSS(score, vector)
	}
	return out
}

// Process dedupes then enriches.
func Process(vs []model.Vulnerability) []model.Vulnerability {
	return Enrich(Dedupe(vs))
}
