package rules

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Sink describes a dangerous call family: a finding is raised when a line
// matches Pattern and also builds its argument dynamically or references a
// tainted variable, unless one of Sanitizers appears nearby.
type Sink struct {
	Title      string
	Category   string
	Severity   severity.Level
	Pattern    *regexp.Regexp
	Exclude    *regexp.Regexp
	Sanitizers []string
	Before     int
	After      int

	// Placeholder, when set, is matched against the line's string literals.
	// A call that is not built by concatenation and whose literal carries a
	// bind placeholder is treated as parameterized.
	Placeholder *regexp.Regexp

	// What is being built, used in the description ("SQL query").
	Subject string
	Fix     string
}

// CommandSink matches process execution calls.
var CommandSink = Sink{
	Title:    "Command Injection",
	Category: CategoryInjection,
	Severity: severity.Critical,
	Subject:  "OS command",
	Pattern:  regexp.MustCompile(`(?i)(runtime\.getruntime\(\)\.exec\s*\(|\bprocessbuilder\s*\(|\bexec\.command(?:context)?\s*\(|\bos\.system\s*\(|\bos\.popen\s*\(|\bsubprocess\.(?:call|run|popen|check_output|check_call)\s*\(|\bchild_process\b|\bexecsync\s*\(|\bshell_exec\s*\(|\bpassthru\s*\(|\bsystem\s*\(|\bspawn\s*\()`),
	Sanitizers: []string{
		"shlex.quote", "escapeshellarg", "escapeshellcmd", "allowlist", "whitelist", "allowedcommands",
		"allowed_commands", "sanitize", "validate", "isvalid", "matches(",
	},
	Before: 3,
	After:  1,
	Fix:    "Do not pass user-controlled strings to a shell. Use an argument array with a fixed executable and validate every argument against an allowlist.",
}

// SQLSink matches SQL statement construction and query execution calls.
// Statement keywords are matched case-sensitively so prose such as
// "select a file from the list" is not taken for SQL.
var SQLSink = Sink{
	Title:    "SQL Injection",
	Category: CategoryInjection,
	Severity: severity.Critical,
	Subject:  "SQL query",
	Pattern:  regexp.MustCompile(`\b(?:SELECT\s.+?\sFROM|INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM|DROP\s+TABLE|ALTER\s+TABLE)\b|(?i)(?:\brawquery\s*\(|\bexecsql\s*\(|\bexecutequery\s*\(|\bexecuteupdate\s*\(|\bcreatestatement\s*\(|\.query(?:row)?(?:context)?\s*\(|\.exec(?:context)?\s*\(|\bcursor\.execute\s*\(|\.raw\s*\()`),
	Exclude:  regexp.MustCompile(`(?i)runtime\.getruntime\(\)\.exec|\bexec\.command|\bpreparestatement\s*\(|\bselectionargs\b`),
	Sanitizers: []string{
		"preparestatement", "bindstring", "bindlong", "setstring(", "setint(", "sanitize", "escape",
		"allowlist", "whitelist", "validate", "isvalid", "quote(", "parameterized",
	},
	Before:      3,
	After:       1,
	Placeholder: regexp.MustCompile(`\?|\$\d|:[A-Za-z_]\w*|%s|%\(\w+\)s|@\w+`),
	Fix:         "Use parameterized queries or prepared statements with bound arguments instead of building SQL from strings.",
}

// PathSink matches file system access with a caller-supplied path.
var PathSink = Sink{
	Title:    "Path Traversal",
	Category: CategoryInjection,
	Severity: severity.Critical,
	Subject:  "file path",
	Pattern:  regexp.MustCompile(`(?i)(\bnew\s+file\s*\(|\bfile\s*\(|\bfileinputstream\s*\(|\bfileoutputstream\s*\(|\bfilereader\s*\(|\bfilewriter\s*\(|\bpaths\.get\s*\(|\bpath\.of\s*\(|\bopen\s*\(|\bos\.(?:open|openfile|readfile|writefile|remove|create)\s*\(|\breadfilesync\s*\(|\bwritefilesync\s*\(|\bsendfile\s*\(|\bfilepath\.join\s*\()`),
	Sanitizers: []string{
		"canonicalpath", "getcanonicalfile", "normalize()", "filepath.clean", "filepath.base", "realpath",
		"path.basename", "os.path.basename", "startswith(", "hasprefix(", `contains("..")`, `"..`,
		"allowlist", "whitelist", "sanitize", "validate", "isvalid",
	},
	Before: 3,
	After:  2,
	Fix:    "Resolve the canonical path and verify it stays under the intended base directory. Reject names containing path separators or '..'.",
}

// InjectionSinks lists the sinks in evaluation order. A line is attributed
// to the first sink it matches.
var InjectionSinks = []Sink{CommandSink, SQLSink, PathSink}

// Deserialization and XML parsing are only reported when untrusted bytes are
// nearby and no protective configuration is present.
var (
	UntrustedStreamTokens = []string{
		"socket", "stream", "network", "http", "request", "input", "url", "recv", "body",
		"bytes", "payload", "upload", "response", "intent", "download",
	}

	Deserialization = Rule{
		Title:       "Insecure Deserialization",
		Category:    CategoryInjection,
		Severity:    severity.Critical,
		Confidence:  severity.ConfidenceMedium,
		Description: "Untrusted data is deserialized with a mechanism that can instantiate arbitrary types. Crafted payloads can lead to remote code execution.",
		Fix:         "Avoid native object deserialization of untrusted input. Use a data-only format such as JSON, or install a strict class allowlist filter.",
		Pattern:     regexp.MustCompile(`(?i)(\bobjectinputstream\b|\.readobject\s*\(|\.readunshared\s*\(|\bpickle\.loads?\s*\(|\bcpickle\.loads?\s*\(|\byaml\.load\s*\(|\bunserialize\s*\(|\bbinaryformatter\b|\bxmldecoder\b|\bmarshal\.loads\s*\(|\bjsonpickle\.decode\s*\(|\bxstream\b.*\.fromxml\s*\()`),
		Exclude:     regexp.MustCompile(`(?i)safe_load|safeloader|yaml\.load\s*\([^)]*loader\s*=\s*yaml\.safe`),
		Require:     UntrustedStreamTokens,
		Suppress: []string{
			"objectinputfilter", "setobjectinputfilter", "resolveclass", "allowlist", "whitelist",
			"validatingobjectinputstream", "accept(",
		},
		Before: 5,
		After:  5,
	}

	XXE = Rule{
		Title:       "XML External Entity (XXE)",
		Category:    CategoryInjection,
		Severity:    severity.Critical,
		Confidence:  severity.ConfidenceMedium,
		Description: "An XML parser processes untrusted input without disabling external entities or DTDs. Attackers can read local files or trigger server-side requests.",
		Fix:         "Disable DOCTYPE declarations and external entity resolution on the parser factory (disallow-doctype-decl, FEATURE_SECURE_PROCESSING), or use a hardened parser such as defusedxml.",
		Pattern:     regexp.MustCompile(`(?i)(\bdocumentbuilderfactory\b|\bsaxparserfactory\b|\bxmlinputfactory\b|\bxmlreaderfactory\b|\btransformerfactory\b|\bsaxreader\b|\bsaxbuilder\b|\betree\.(?:parse|fromstring)\s*\(|\bxml\.sax\.|\bminidom\.parse|\blxml\b|\bxmlpullparserfactory\b|\bnew\s+domparser\s*\()`),
		Exclude:     regexp.MustCompile(`(?i)defusedxml`),
		Require:     UntrustedStreamTokens,
		Suppress: []string{
			"disallow-doctype-decl", "feature_secure_processing", "external-general-entities",
			"external-parameter-entities", "setexpandentityreferences(false)", "is_supporting_external_entities",
			"resolve_entities=false", "defusedxml", "supportdtd", "access_external_dtd", "accessexternaldtd",
			"load-external-dtd", "setxincludeaware(false)",
		},
		Before: 6,
		After:  8,
	}
)

// OpenRedirect matches redirects whose target comes from the request.
var OpenRedirect = Rule{
	Title:       "Open Redirect",
	Category:    CategoryNavigation,
	Severity:    severity.High,
	Confidence:  severity.ConfidenceMedium,
	Description: "A redirect target is taken from request data. Attackers can craft links that bounce users to phishing sites through a trusted domain.",
	Fix:         "Redirect only to relative paths or to hosts on an explicit allowlist. Never redirect to a URL taken verbatim from request parameters.",
	Pattern:     regexp.MustCompile(`(?i)(\bsendredirect\s*\(|\bres\.redirect\s*\(|\bhttp\.redirect\s*\(|\bredirect\s*\(|\bwindow\.location(?:\.href)?\s*=|\blocation\.href\s*=|\blocation\.replace\s*\(|["']location:\s*["']?\s*\.|\bredirectview\s*\(|\bredirect_to\s*\()`),
	Suppress:    []string{"allowlist", "whitelist", "isallowed", "allowed_hosts", "allowedhosts", "issafeurl", "is_safe_url", "url_has_allowed_host"},
	Before:      3,
	After:       0,
}
