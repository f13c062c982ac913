// Package rules holds the static detection tables used by the detectors:
// regular expressions, keyword lists and the finding text attached to each
// match. Nothing in this package holds per-scan state; every table is built
// once at package initialisation and only read afterwards.
//
// Adding a rule means adding a row to a table. Checker control flow in the
// detect package does not change.
package rules

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Categories used as finding tags. Enrichment keys on these values.
const (
	CategorySecrets         = "Secrets"
	CategoryInjection       = "Injection"
	CategoryTransport       = "Transport"
	CategoryCryptography    = "Cryptography"
	CategoryStorage         = "Storage"
	CategoryLogging         = "Logging"
	CategoryErrorHandling   = "Error Handling"
	CategoryWebView         = "WebView"
	CategoryConfiguration   = "Configuration"
	CategoryPlatform        = "Platform"
	CategoryInputValidation = "Input Validation"
	CategoryDataLeakage     = "Data Leakage"
	CategoryNetwork         = "Network"
	CategoryNullSafety      = "Null Safety"
	CategoryCodeQuality     = "Code Quality"
	CategoryNavigation      = "Navigation"
)

// Rule is one pattern-driven detection rule.
//
// A line matches when Pattern matches the raw line, Exclude (if set) does
// not, at least one of Require (if set) appears in the window
// [line-Before, line+After] (or on the line itself when RequireOnLine is
// set), and none of Suppress appears in that window. Require and Suppress
// entries are lowercase substrings.
type Rule struct {
	Title       string
	Category    string
	Severity    severity.Level
	Confidence  severity.Confidence
	Description string
	Fix         string

	Pattern *regexp.Regexp
	Exclude *regexp.Regexp

	Require       []string
	RequireOnLine bool
	Suppress      []string
	Before        int
	After         int
}

// Group is a named list of rules run by a single checker.
type Group struct {
	Name  string
	Rules []Rule
}

// Keywords that mark a value or identifier as sensitive. Lowercase.
var SensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "apikey", "api_key", "credential",
	"private_key", "privatekey", "ssn", "social_security", "creditcard", "credit_card",
	"cardnumber", "card_number", "cvv", "sessionid", "session_id", "authorization", "auth_token",
	"authtoken", "pincode", "pin_code",
}

// ValidationTokens indicate that a value read from outside is checked before
// use. Lowercase.
var ValidationTokens = []string{
	"validate", "isvalid", "sanitize", "allowlist", "whitelist", "matches(", "require(",
	"check(", "startswith", "hasprefix", "isnullorempty", "isempty()", "isblank()",
	"regex", "pattern", "verify", "equals(", "in allowed",
}
