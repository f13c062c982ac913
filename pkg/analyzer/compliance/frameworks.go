package compliance

import (
	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
)

// Template is the fixed text of one compliance issue.
type Template struct {
	Framework   model.Framework
	Article     string
	Title       string
	Description string
	Fix         string
}

// GDPR
var (
	gdprLogs = Template{
		Framework:   model.FrameworkGDPR,
		Article:     "Art. 32",
		Title:       "Personal Data in Logs",
		Description: "Personal data is written to application logs, where it is retained without access control or a lawful basis.",
		Fix:         "Remove personal data from log statements or log a pseudonymous identifier instead.",
	}
	gdprStorage = Template{
		Framework:   model.FrameworkGDPR,
		Article:     "Art. 32",
		Title:       "Personal Data Stored Without Encryption",
		Description: "Personal data is persisted without encryption. Art. 32 requires appropriate technical measures such as encryption of personal data.",
		Fix:         "Encrypt personal data at rest (EncryptedSharedPreferences, SQLCipher, platform keystore-backed keys).",
	}
	gdprTransport = Template{
		Framework:   model.FrameworkGDPR,
		Article:     "Art. 32",
		Title:       "Personal Data Sent Over Unencrypted Connection",
		Description: "Code handling personal data communicates over plain HTTP, exposing the data in transit.",
		Fix:         "Use HTTPS for every endpoint that receives personal data.",
	}
	gdprErasure = Template{
		Framework:   model.FrameworkGDPR,
		Article:     "Art. 17",
		Title:       "No Data Deletion Mechanism",
		Description: "Personal data is stored but no deletion or anonymisation path was found. Data subjects have the right to erasure.",
		Fix:         "Provide a way to delete or anonymise a user's stored personal data on request.",
	}
	gdprConsent = Template{
		Framework:   model.FrameworkGDPR,
		Article:     "Art. 6 / Art. 7",
		Title:       "No Consent Mechanism",
		Description: "Personal data is stored or tracked but no consent handling was found. Processing needs a lawful basis such as recorded consent.",
		Fix:         "Ask for and record user consent before collecting or tracking personal data, and allow it to be withdrawn.",
	}
)

// HIPAA
var (
	hipaaAudit = Template{
		Framework:   model.FrameworkHIPAA,
		Article:     "§164.312(b)",
		Title:       "No Audit Trail for PHI Access",
		Description: "Protected health information is read or written but no audit logging of that access was found.",
		Fix:         "Record who accessed which PHI record and when in a tamper-evident audit log.",
	}
	hipaaStorage = Template{
		Framework:   model.FrameworkHIPAA,
		Article:     "§164.312(a)(2)(iv)",
		Title:       "PHI Stored Without Encryption",
		Description: "Protected health information is persisted without encryption.",
		Fix:         "Encrypt PHI at rest with keys held in the platform keystore.",
	}
	hipaaTransport = Template{
		Framework:   model.FrameworkHIPAA,
		Article:     "§164.312(e)(1)",
		Title:       "PHI Transmitted Without Encryption",
		Description: "Code handling protected health information communicates over plain HTTP.",
		Fix:         "Transmit PHI only over TLS-protected connections.",
	}
	hipaaLogs = Template{
		Framework:   model.FrameworkHIPAA,
		Article:     "§164.502(b)",
		Title:       "PHI in Logs",
		Description: "Protected health information is written to logs, violating the minimum necessary standard.",
		Fix:         "Remove PHI from log statements; log record identifiers only.",
	}
)

// PCI-DSS
var (
	pciLogs = Template{
		Framework:   model.FrameworkPCI,
		Article:     "Req. 3.5.1",
		Title:       "Cardholder Data in Logs",
		Description: "Cardholder data is written to logs in clear text.",
		Fix:         "Never log PAN or card data; if a reference is needed, log a truncated or tokenized value.",
	}
	pciSecurityCode = Template{
		Framework:   model.FrameworkPCI,
		Article:     "Req. 3.3.1.2",
		Title:       "Card Security Code Stored",
		Description: "The card verification code is persisted. It must not be retained after authorization, even encrypted.",
		Fix:         "Use the security code only for the authorization request and never store it.",
	}
	pciStorage = Template{
		Framework:   model.FrameworkPCI,
		Article:     "Req. 3.5.1",
		Title:       "Cardholder Data Stored Without Encryption",
		Description: "Cardholder data is persisted without being rendered unreadable.",
		Fix:         "Store only tokens from the payment provider, or encrypt PAN with strong cryptography and managed keys.",
	}
	pciCardLiteral = Template{
		Framework:   model.FrameworkPCI,
		Article:     "Req. 3.5.1",
		Title:       "Card Number in Source Code",
		Description: "A literal that passes the Luhn check is embedded in the code and may be a real primary account number.",
		Fix:         "Remove card numbers from source code and use the payment provider's designated sandbox numbers in non-production configuration.",
	}
	pciTransport = Template{
		Framework:   model.FrameworkPCI,
		Article:     "Req. 4.2.1",
		Title:       "Cardholder Data Over Unencrypted Connection",
		Description: "Code handling cardholder data communicates over plain HTTP.",
		Fix:         "Transmit cardholder data only over strong TLS.",
	}
	pciCredentials = Template{
		Framework:   model.FrameworkPCI,
		Article:     "Req. 8.6.2",
		Title:       "Hardcoded Credentials",
		Description: "A password or key used by the payment code is hardcoded in the source.",
		Fix:         "Load credentials from a secrets manager at runtime and rotate the exposed value.",
	}
)

// SOC2
var (
	soc2Credentials = Template{
		Framework:   model.FrameworkSOC2,
		Article:     "CC6.1",
		Title:       "Hardcoded Credentials",
		Description: "Credentials embedded in code bypass logical access controls and cannot be rotated.",
		Fix:         "Move credentials to a secrets manager and grant access per service identity.",
	}
	soc2AuthEvents = Template{
		Framework:   model.FrameworkSOC2,
		Article:     "CC7.2",
		Title:       "Authentication Events Not Logged",
		Description: "Authentication happens in this code but no logging or audit trail was found, so anomalies cannot be detected.",
		Fix:         "Log successful and failed authentication attempts without recording the credentials themselves.",
	}
	soc2Logs = Template{
		Framework:   model.FrameworkSOC2,
		Article:     "CC6.1",
		Title:       "Sensitive Authentication Data in Logs",
		Description: "Passwords, tokens or session identifiers are written to logs.",
		Fix:         "Remove secrets from log statements and mask any identifiers that must be logged.",
	}
	soc2Transport = Template{
		Framework:   model.FrameworkSOC2,
		Article:     "CC6.7",
		Title:       "Unencrypted Data Transmission",
		Description: "Authentication related data is sent over plain HTTP.",
		Fix:         "Restrict transmission to TLS-protected channels.",
	}
)

// COPPA
var (
	coppaAgeGate = Template{
		Framework:   model.FrameworkCOPPA,
		Article:     "§312.3",
		Title:       "No Age Verification",
		Description: "The code targets children but no age gate or age check was found.",
		Fix:         "Add a neutral age screen before collecting any personal information.",
	}
	coppaConsent = Template{
		Framework:   model.FrameworkCOPPA,
		Article:     "§312.5",
		Title:       "No Verifiable Parental Consent",
		Description: "Children's data is handled but no parental consent mechanism was found.",
		Fix:         "Obtain verifiable parental consent before collecting personal information from children.",
	}
	coppaTracking = Template{
		Framework:   model.FrameworkCOPPA,
		Article:     "§312.2",
		Title:       "Child Tracking Without Parental Consent",
		Description: "Analytics, advertising identifiers or location are collected in a child-directed context without parental consent.",
		Fix:         "Disable tracking and persistent identifiers for child users unless a parent has consented.",
	}
	coppaLogs = Template{
		Framework:   model.FrameworkCOPPA,
		Article:     "§312.8",
		Title:       "Child Data in Logs",
		Description: "Personal information about a child is written to logs.",
		Fix:         "Remove children's personal information from log statements.",
	}
	coppaTransport = Template{
		Framework:   model.FrameworkCOPPA,
		Article:     "§312.8",
		Title:       "Child Data Over Unencrypted Connection",
		Description: "Code handling children's data communicates over plain HTTP.",
		Fix:         "Use HTTPS for every endpoint that receives children's data.",
	}
)

var catalog = []Template{
	gdprLogs, gdprStorage, gdprTransport, gdprErasure, gdprConsent,
	hipaaAudit, hipaaStorage, hipaaTransport, hipaaLogs,
	pciLogs, pciSecurityCode, pciStorage, pciCardLiteral, pciTransport, pciCredentials,
	soc2Credentials, soc2AuthEvents, soc2Logs, soc2Transport,
	coppaAgeGate, coppaConsent, coppaTracking, coppaLogs, coppaTransport,
}

// CheckCount is the number of distinct compliance checks.
var CheckCount = len(catalog)

// Catalog returns every issue template.
func Catalog() []Template {
	return append([]Template(nil), catalog...)
}

var frameworkChecks = map[model.Framework]func(*scanner, *collector){
	model.FrameworkGDPR:  checkGDPR,
	model.FrameworkHIPAA: checkHIPAA,
	model.FrameworkPCI:   checkPCI,
	model.FrameworkSOC2:  checkSOC2,
	model.FrameworkCOPPA: checkCOPPA,
}

func checkGDPR(s *scanner, c *collector) {
	if !s.mentions(rules.PersonalDataKeywords) {
		return
	}
	c.addLines(gdprLogs, s.loggedLines(rules.PersonalDataKeywords))
	c.addLines(gdprStorage, s.unencryptedStores(rules.PersonalDataKeywords))
	c.addLines(gdprTransport, s.insecureURLs())

	persists := len(s.matching(rules.PersistCall.MatchString)) > 0
	tracks := len(s.matching(rules.TrackingCall.MatchString)) > 0
	if persists && !s.codeHas(rules.DeletionIndicators) {
		c.add(gdprErasure, -1)
	}
	if (persists || tracks) && !s.codeHas(rules.ConsentIndicators) {
		c.add(gdprConsent, -1)
	}
}

func checkHIPAA(s *scanner, c *collector) {
	if !s.mentions(rules.HealthDataKeywords) {
		return
	}
	c.addLines(hipaaLogs, s.loggedLines(rules.HealthDataKeywords))
	c.addLines(hipaaStorage, s.unencryptedStores(rules.HealthDataKeywords))
	c.addLines(hipaaTransport, s.insecureURLs())

	accesses := len(s.matching(func(line string) bool {
		return rules.PersistCall.MatchString(line) || rules.QueryCall.MatchString(line)
	})) > 0
	if accesses && !s.codeHas(rules.AuditIndicators) {
		c.add(hipaaAudit, -1)
	}
}

func checkPCI(s *scanner, c *collector) {
	cards := s.cardNumberLines()
	if !s.mentions(rules.CardholderKeywords) && len(cards) == 0 {
		return
	}
	c.addLines(pciLogs, s.loggedLines(rules.CardholderKeywords))
	c.addLines(pciSecurityCode, s.storesOf(rules.SecurityCodeKeywords))
	c.addLines(pciStorage, s.unencryptedStores(rules.CardholderKeywords))
	c.addLines(pciCardLiteral, cards)
	c.addLines(pciTransport, s.insecureURLs())
	c.addLines(pciCredentials, s.hardcodedCredentials())
}

func checkSOC2(s *scanner, c *collector) {
	if !s.mentions(rules.AuthKeywords) {
		return
	}
	c.addLines(soc2Credentials, s.hardcodedCredentials())

	if events := s.matching(rules.AuthEvent.MatchString); len(events) > 0 {
		logged := len(s.matching(rules.LogCall.MatchString)) > 0
		if !logged && !s.codeHas(rules.AuditIndicators) {
			c.add(soc2AuthEvents, events[0])
		}
	}

	var secretLogs []int
	s.each(func(i int, line, _ string) {
		if rules.LogCall.MatchString(line) && srcline.ContainsAny(s.f.Lower(i), rules.SensitiveKeywords...) {
			secretLogs = append(secretLogs, i)
		}
	})
	c.addLines(soc2Logs, secretLogs)
	c.addLines(soc2Transport, s.insecureURLs())
}

func checkCOPPA(s *scanner, c *collector) {
	if !s.mentions(rules.ChildKeywords) {
		return
	}
	hasConsent := s.mentions(rules.ParentalConsentKeywords)

	if !s.mentions(rules.AgeGateKeywords) {
		c.add(coppaAgeGate, -1)
	}
	if !hasConsent {
		c.add(coppaConsent, -1)
		c.addLines(coppaTracking, s.matching(rules.TrackingCall.MatchString))
	}

	childData := append(append([]string(nil), rules.ChildKeywords...), rules.PersonalDataKeywords...)
	c.addLines(coppaLogs, s.loggedLines(childData))
	c.addLines(coppaTransport, s.insecureURLs())
}
