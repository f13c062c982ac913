package rules

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Exception handler shapes.
var (
	// catch (...) { } or catch { } closed on the same line.
	EmptyCatchInline = regexp.MustCompile(`\bcatch\s*(?:\([^)]*\))?\s*\{\s*\}`)

	// catch (...) { or catch { at the end of a line.
	CatchOpen = regexp.MustCompile(`\bcatch\s*(?:\([^)]*\))?\s*\{\s*$`)

	// except ...: pass on one line.
	ExceptPassInline = regexp.MustCompile(`^\s*except\b[^:]*:\s*(?:pass|\.\.\.)\s*(?:#.*)?$`)

	// except ...: at the end of a line.
	ExceptOpen = regexp.MustCompile(`^\s*except\b[^:]*:\s*(?:#.*)?$`)

	// Go: if err != nil { } with an empty body.
	EmptyErrCheck = regexp.MustCompile(`\bif\s+err\s*!=\s*nil\s*\{\s*\}`)

	// Body statements that do nothing.
	NoOpStatement = regexp.MustCompile(`^\s*(?:pass|\.\.\.|;|Unit)?\s*$`)

	// Catch clauses for the root exception types.
	BroadCatch = regexp.MustCompile(`\bcatch\s*\(\s*(?:final\s+)?(?:\w+\s*:\s*)?(?:java\.lang\.|kotlin\.)?(?:Exception|Throwable)\b|\bcatch\s*\(\s*(?:final\s+)?(?:Exception|Throwable)\s+\w+\s*\)|^\s*except\s*(?:\(?\s*(?:Exception|BaseException)\s*\)?)?\s*(?:as\s+\w+)?\s*:|\bcatch\s*\(\s*\.\.\.\s*\)|\brescue\s*(?:=>\s*\w+)?\s*$`)
)

// EmptyHandler is the finding for exception handlers that swallow errors.
var EmptyHandler = Rule{
	Title:       "Empty Exception Handler",
	Category:    CategoryErrorHandling,
	Severity:    severity.High,
	Confidence:  severity.ConfidenceHigh,
	Description: "An exception is caught and silently ignored. Security failures such as failed signature checks or TLS errors go unnoticed and the program continues in an undefined state.",
	Fix:         "Handle the exception: log it without sensitive data, fail closed, or rethrow a meaningful error.",
}

// OverlyBroadCatch is the finding for non-empty handlers of root types.
var OverlyBroadCatch = Rule{
	Title:       "Overly Broad Exception Catch",
	Category:    CategoryErrorHandling,
	Severity:    severity.Low,
	Confidence:  severity.ConfidenceMedium,
	Description: "A handler catches the root exception type, which also swallows programming errors and security exceptions that should propagate.",
	Fix:         "Catch the specific exception types the block can raise and let others propagate.",
}

// SecurityTodo finds TODO-style markers that mention a security topic.
var SecurityTodo = Rule{
	Title:       "Security TODO Comment",
	Category:    CategoryCodeQuality,
	Severity:    severity.Low,
	Confidence:  severity.ConfidenceMedium,
	Description: "A TODO or FIXME comment refers to unfinished security work.",
	Fix:         "Resolve the pending security work or track it in the issue tracker before release.",
	Pattern:     regexp.MustCompile(`\b(?:TODO|FIXME|HACK|XXX)\b`),
	Require: []string{
		"secur", "auth", "password", "encrypt", "decrypt", "crypt", "token", "secret", "vulnerab",
		"insecure", "validat", "sanitiz", "ssl", "tls", "certificate", "permission", "injection",
		"xss", "csrf", "credential", "login", "hardcoded", "unsafe",
	},
	RequireOnLine: true,
}

// NullSafety holds force unwrap and unchecked cast rules. Patterns are
// applied to the line with string literals blanked.
var NullSafety = Group{
	Name: "null-safety",
	Rules: []Rule{
		{
			Title:       "Force Unwrap Operator",
			Category:    CategoryNullSafety,
			Severity:    severity.Medium,
			Confidence:  severity.ConfidenceMedium,
			Description: "The not-null assertion operator (!!) throws when the value is null, crashing the app on unexpected input.",
			Fix:         "Use safe calls (?.), the elvis operator (?:) or an explicit null check with a meaningful fallback.",
			Pattern:     regexp.MustCompile(`[\w)\]]!!(?:[^=]|$)`),
		},
		{
			Title:       "Unsafe Type Cast",
			Category:    CategoryNullSafety,
			Severity:    severity.Medium,
			Confidence:  severity.ConfidenceLow,
			Description: "An unchecked cast throws at runtime when the value has an unexpected type.",
			Fix:         "Use a safe cast (as?) or a type check (is) before casting.",
			Pattern:     regexp.MustCompile(`[\w)\]]\s+as\s+[A-Z][\w.<>]*|\bas!\s`),
			Exclude:     regexp.MustCompile(`^\s*(?:import|from|export|package)\b|\bas\?`),
		},
	},
}
