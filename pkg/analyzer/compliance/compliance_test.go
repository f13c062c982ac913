package compliance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/codeguard/pkg/model"
)

func check(lines ...string) *model.ComplianceResult {
	return CheckCode(strings.Join(lines, "\n"))
}

func titles(issues []model.ComplianceIssue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Title)
	}
	return out
}

func TestWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"val patientName = rec.DOB", " val patient name rec dob "},
		{"user_email_address", " user email address "},
		{"HTTPServer", " http server "},
		{"isOver13", " is over13 "},
		{"", ""},
		{"  ;; ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Words(tt.in), tt.in)
	}
}

func TestHasWord(t *testing.T) {
	w := Words("val patients = loadMedicalRecords(userAge)")
	assert.True(t, HasWord(w, "patient"))
	assert.True(t, HasWord(w, "medical"))
	assert.True(t, HasWord(w, "age"))
	assert.False(t, HasWord(w, "pan"))
	assert.False(t, HasWord(Words("val page = 1"), "age"))
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, LuhnValid("4111111111111111"))
	assert.True(t, LuhnValid("4111 1111 1111 1111"))
	assert.True(t, LuhnValid("5500-0000-0000-0004"))
	assert.False(t, LuhnValid("4111111111111112"))
	assert.False(t, LuhnValid("1234 5678 9012 3456"))
	assert.False(t, LuhnValid("411111111111"))
	assert.False(t, LuhnValid("4111x1111111111111"))
}

func TestCheck_Empty(t *testing.T) {
	res := CheckCode("")
	assert.NotNil(t, res.Issues)
	assert.Empty(t, res.Issues)
	assert.True(t, res.GDPRCompliant)
	assert.True(t, res.HIPAACompliant)
	assert.True(t, res.PCICompliant)
	assert.Equal(t, "No compliance issues detected.", res.Summary)
}

func TestHIPAA_GatedOnHealthKeywords(t *testing.T) {
	generic := check(
		`fun save(user: User) {`,
		`    Log.d(TAG, "saving " + user.email)`,
		`    prefs.edit().putString("email", user.email).apply()`,
		`    client.post("http://api.shop.io/users", user)`,
		`}`,
	)
	assert.Empty(t, generic.IssuesFor(model.FrameworkHIPAA))
	assert.True(t, generic.HIPAACompliant)
	assert.NotEmpty(t, generic.IssuesFor(model.FrameworkGDPR))

	health := check(
		`fun savePatient(patient: Patient) {`,
		`    Log.d(TAG, "saving patient " + patient.diagnosis)`,
		`    prefs.edit().putString("diagnosis", patient.diagnosis).apply()`,
		`    client.post("http://api.clinic.io/records", patient)`,
		`}`,
	)
	issues := health.IssuesFor(model.FrameworkHIPAA)
	assert.False(t, health.HIPAACompliant)
	assert.ElementsMatch(t, []string{
		"PHI in Logs",
		"PHI Stored Without Encryption",
		"PHI Transmitted Without Encryption",
		"No Audit Trail for PHI Access",
	}, titles(issues))

	byTitle := map[string]model.ComplianceIssue{}
	for _, i := range issues {
		byTitle[i.Title] = i
	}
	assert.Equal(t, 2, byTitle["PHI in Logs"].Line)
	assert.Equal(t, 3, byTitle["PHI Stored Without Encryption"].Line)
	assert.Equal(t, "§164.312(a)(2)(iv)", byTitle["PHI Stored Without Encryption"].Article)
	assert.Equal(t, 4, byTitle["PHI Transmitted Without Encryption"].Line)
	assert.Equal(t, 0, byTitle["No Audit Trail for PHI Access"].Line)
}

func TestHIPAA_EncryptionAndAuditSatisfy(t *testing.T) {
	res := check(
		`fun savePatient(patient: Patient) {`,
		`    val sealed = cipher.doFinal(patient.diagnosis.toByteArray())`,
		`    prefs.edit().putString("diagnosis", encode(sealed)).apply()`,
		`    auditLog.record(patient.id)`,
		`}`,
	)
	assert.Empty(t, res.IssuesFor(model.FrameworkHIPAA))
}

func TestGDPR_LogsOnly(t *testing.T) {
	res := check(
		`val email = form.email`,
		`Log.i(TAG, "email=" + email)`,
	)
	issues := res.IssuesFor(model.FrameworkGDPR)
	require.Len(t, issues, 1)
	assert.Equal(t, "Personal Data in Logs", issues[0].Title)
	assert.Equal(t, 2, issues[0].Line)
	assert.False(t, res.GDPRCompliant)
}

func TestGDPR_MissingControls(t *testing.T) {
	res := check(
		`fun store(profile: Profile) {`,
		`    dao.insert(profile.email)`,
		`}`,
	)
	assert.ElementsMatch(t, []string{
		"Personal Data Stored Without Encryption",
		"No Data Deletion Mechanism",
		"No Consent Mechanism",
	}, titles(res.IssuesFor(model.FrameworkGDPR)))

	res = check(
		`fun store(profile: Profile) {`,
		`    if (!profile.consentGiven) return`,
		`    dao.insert(encrypt(profile.email))`,
		`}`,
		`fun deleteProfile(id: Long) = dao.deleteById(id)`,
	)
	assert.Empty(t, res.IssuesFor(model.FrameworkGDPR))
	assert.True(t, res.GDPRCompliant)
}

func TestPCI(t *testing.T) {
	res := check(
		`val cardNumber = "4111 1111 1111 1111"`,
		`prefs.edit().putString("cvv", card.cvv).apply()`,
	)
	issues := res.IssuesFor(model.FrameworkPCI)
	assert.False(t, res.PCICompliant)
	assert.Contains(t, titles(issues), "Card Number in Source Code")
	assert.Contains(t, titles(issues), "Card Security Code Stored")
	assert.Contains(t, titles(issues), "Cardholder Data Stored Without Encryption")
	for _, i := range issues {
		if i.Title == "Card Number in Source Code" {
			assert.Equal(t, 1, i.Line)
		}
	}
}

func TestPCI_GateOnLuhnLiteral(t *testing.T) {
	res := check(`val n = "4111111111111111"`)
	issues := res.IssuesFor(model.FrameworkPCI)
	require.Len(t, issues, 1)
	assert.Equal(t, "Card Number in Source Code", issues[0].Title)

	res = check(`val n = "1234567890123456"`)
	assert.Empty(t, res.IssuesFor(model.FrameworkPCI))
}

func TestSOC2_AuthEventsNotLogged(t *testing.T) {
	res := check(
		`fun login(user: String, pass: String): Boolean {`,
		`    return authService.authenticate(user, pass)`,
		`}`,
	)
	issues := res.IssuesFor(model.FrameworkSOC2)
	require.Len(t, issues, 1)
	assert.Equal(t, "Authentication Events Not Logged", issues[0].Title)
	assert.Equal(t, "CC7.2", issues[0].Article)
	assert.Equal(t, 1, issues[0].Line)

	res = check(
		`fun login(user: String, pass: String): Boolean {`,
		`    logger.info("login attempt for " + user)`,
		`    return authService.authenticate(user, pass)`,
		`}`,
	)
	assert.Empty(t, res.IssuesFor(model.FrameworkSOC2))
}

func TestCOPPA(t *testing.T) {
	res := check(
		`class KidsProfileScreen {`,
		`    fun onCreate() {`,
		`        analytics.logEvent("opened")`,
		`    }`,
		`}`,
	)
	issues := res.IssuesFor(model.FrameworkCOPPA)
	assert.Equal(t, []string{
		"No Age Verification",
		"No Verifiable Parental Consent",
		"Child Tracking Without Parental Consent",
	}, titles(issues))
	assert.Equal(t, 3, issues[2].Line)

	res = check(
		`class KidsProfileScreen {`,
		`    fun onCreate() {`,
		`        if (parentalConsent.granted && userAge >= 13) analytics.logEvent("opened")`,
		`    }`,
		`}`,
	)
	assert.Empty(t, res.IssuesFor(model.FrameworkCOPPA))
}

func TestCheck_DedupesPerFramework(t *testing.T) {
	res := check(
		`val email = form.email`,
		`Log.i(TAG, "email=" + email + " phone=" + form.phone)`,
	)
	assert.Len(t, res.IssuesFor(model.FrameworkGDPR), 1)
}

func TestCheck_SkipsCommentsAndTestCode(t *testing.T) {
	res := check(
		`// Log.d(TAG, patient.diagnosis)`,
		`val mockPatient = Patient("sample")`,
	)
	assert.Empty(t, res.Issues)
}

func TestSummary(t *testing.T) {
	res := check(
		`val email = form.email`,
		`Log.i(TAG, "email=" + email)`,
	)
	assert.Equal(t, "1 compliance issue found (GDPR: 1).", res.Summary)
}

func TestCatalog(t *testing.T) {
	c := Catalog()
	assert.Len(t, c, CheckCount)
	for _, tmpl := range c {
		assert.NotEmpty(t, tmpl.Article, tmpl.Title)
		assert.NotEmpty(t, tmpl.Description, tmpl.Title)
		assert.NotEmpty(t, tmpl.Fix, tmpl.Title)
	}
}
