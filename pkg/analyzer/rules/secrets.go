package rules

import (
	"regexp"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

const secretFix = "Remove the credential from source code, rotate it, and load it at runtime from a secrets manager, the platform keystore or an environment variable."

var openAIKey = func() Rule {
	r := vendorSecret("OpenAI API Key", `\bsk-(?:proj-)?[A-Za-z0-9_-]{20,}`, "OpenAI API key")
	r.Exclude = regexp.MustCompile(`^sk-ant-`)
	return r
}()

func vendorSecret(title, expr, what string) Rule {
	return Rule{
		Title:       title,
		Category:    CategorySecrets,
		Severity:    severity.Critical,
		Confidence:  severity.ConfidenceHigh,
		Description: "A hardcoded " + what + " was found in source code. Anyone with access to the code or the shipped binary can extract and abuse it.",
		Fix:         secretFix,
		Pattern:     regexp.MustCompile(expr),
	}
}

// VendorSecrets are token shapes issued by well-known providers. They are
// matched anywhere on a line, quoted or not. Exclude applies to each matched
// token rather than to the line.
var VendorSecrets = []Rule{
	openAIKey,
	vendorSecret("Anthropic API Key", `\bsk-ant-[A-Za-z0-9_-]{20,}`, "Anthropic API key"),
	vendorSecret("Google API Key", `\bAIza[0-9A-Za-z_-]{35}`, "Google API key"),
	vendorSecret("GitHub Personal Access Token", `\bghp_[A-Za-z0-9]{36}`, "GitHub personal access token"),
	vendorSecret("GitHub OAuth Token", `\bgho_[A-Za-z0-9]{36}`, "GitHub OAuth token"),
	vendorSecret("GitHub Fine-Grained Token", `\bgithub_pat_[A-Za-z0-9_]{22,}`, "GitHub fine-grained personal access token"),
	vendorSecret("AWS Access Key ID", `\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`, "AWS access key id"),
	vendorSecret("AWS Secret Access Key", `(?i)aws_?secret_?(?:access_?)?key\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}`, "AWS secret access key"),
	vendorSecret("Slack Token", `\bxox[baprs]-[A-Za-z0-9-]{10,}`, "Slack token"),
	vendorSecret("Slack Webhook URL", `https://hooks\.slack\.com/services/[A-Za-z0-9/_-]{20,}`, "Slack incoming webhook URL"),
	vendorSecret("Stripe Secret Key", `\b(?:sk|rk)_live_[A-Za-z0-9]{20,}`, "Stripe live secret key"),
	vendorSecret("Private Key", `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----`, "private key"),
	vendorSecret("Database Connection String", `(?i)\b(?:mongodb(?:\+srv)?|postgres(?:ql)?|mysql|mariadb|redis|amqp|mssql|jdbc:[a-z]+)://[^\s:"'/@]+:[^\s"'@]+@[^\s"']+`, "database connection string with embedded credentials"),
	vendorSecret("JSON Web Token", `\beyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`, "JSON web token"),
}

// GenericSecret matches assignments of a quoted value of 8 or more
// characters to an identifier that names a credential. Group 1 is the
// identifier, group 2 the value.
var GenericSecret = Rule{
	Title:       "Hardcoded Secret",
	Category:    CategorySecrets,
	Severity:    severity.Critical,
	Confidence:  severity.ConfidenceMedium,
	Description: "A credential-like value is assigned from a string literal. Secrets embedded in code end up in version control and in every build artifact.",
	Fix:         secretFix,
	Pattern:     regexp.MustCompile(`(?i)\b([A-Za-z0-9_.-]*(?:api[_-]?key|secret|password|passwd|pwd|token|auth[_-]?key|access[_-]?key|private[_-]?key|client[_-]?secret|credentials?)[A-Za-z0-9_]*)["']?\s*(?::\s*[A-Za-z<>?]+\s*)?(?::=|=|:|=>)\s*["']([^"'\s]{8,})["']`),
}

// SecretPlaceholders are lowercase fragments of values that are obviously
// not real credentials.
var SecretPlaceholders = []string{
	"${", "{{", "%s", "<", "xxx", "***", "...", "your", "changeme", "replace", "redacted",
	"example", "sample", "dummy", "placeholder", "insert", "todo", "process.env", "os.getenv",
	"getenv", "environ", "buildconfig.", "none", "null", "undefined", "password123",
}
