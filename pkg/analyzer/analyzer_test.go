package analyzer

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/codeguard/pkg/analyzer/compliance"
	"github.com/exploopio/codeguard/pkg/analyzer/detect"
	"github.com/exploopio/codeguard/pkg/analyzer/health"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/metrics"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

var githubToken = "ghp_" + strings.Repeat("a1B2", 9)

const mixedSource = `fun login(userId: String, password: String): Cursor {
    Log.d(TAG, "login " + userId + " password " + password)
    val query = "SELECT * FROM users WHERE id = " + userId
    val api = "http://api.shop.io/v1/login"
    try {
        val md = MessageDigest.getInstance("MD5")
    } catch (e: Exception) {
    }
    val n = intent.getStringExtra("next")!!
    // TODO: validate the session token
    return db.rawQuery(query, null)
}`

func code(lines ...string) string {
	return strings.Join(lines, "\n")
}

func withTitle(vs []model.Vulnerability, title string) []model.Vulnerability {
	var out []model.Vulnerability
	for _, v := range vs {
		if v.Title == title {
			out = append(out, v)
		}
	}
	return out
}

func TestScanSecurity_Empty(t *testing.T) {
	res := ScanSecurity("", "Kotlin")

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, "A", res.Grade)
	assert.NotNil(t, res.Vulnerabilities)
	assert.Empty(t, res.Vulnerabilities)
	assert.Zero(t, res.Counts.Total)
	assert.Equal(t, detect.CheckCount+compliance.CheckCount, res.TotalChecks)
	require.NotNil(t, res.Compliance)
	assert.Empty(t, res.Compliance.Issues)
	assert.Equal(t, "Scanned 0 lines of Kotlin. No security issues found. Score 100/100 (A).", res.Summary)
}

func TestScanSecurity_VendorSecretLowersScore(t *testing.T) {
	clean := code(
		`fun add(a: Int, b: Int): Int {`,
		`    return a + b`,
		`}`,
	)
	dirty := code(
		`fun add(a: Int, b: Int): Int {`,
		`    val token = "`+githubToken+`"`,
		`    return a + b`,
		`}`,
	)

	before := ScanSecurity(clean, "Kotlin")
	after := ScanSecurity(dirty, "Kotlin")

	assert.Less(t, after.Score, before.Score)
	assert.Equal(t, before.Counts.Critical+1, after.Counts.Critical)
	found := withTitle(after.Vulnerabilities, "GitHub Personal Access Token")
	require.Len(t, found, 1)
	assert.Equal(t, severity.Critical, found[0].Severity)
	assert.NotContains(t, found[0].Snippet, githubToken)
}

func TestScanSecurity_ConcatenatedSQL(t *testing.T) {
	res := ScanSecurity(code(
		`fun findUser(userId: String): Cursor {`,
		`    val query = "SELECT * FROM users WHERE id = " + userId`,
		`    return db.rawQuery(query, null)`,
		`}`,
	), "Kotlin")

	found := withTitle(res.Vulnerabilities, "SQL Injection")
	require.NotEmpty(t, found)
	v := found[0]
	assert.Equal(t, severity.Critical, v.Severity)
	assert.Equal(t, "Injection", v.Category)
	assert.Contains(t, v.Description, "user input")
	assert.Equal(t, "CWE-89", v.CWE)
	assert.Equal(t, 9.8, v.CVSSScore)
	assert.NotEmpty(t, v.OWASP)
	assert.Subset(t, res.OWASPCategories, v.OWASP)
	assert.LessOrEqual(t, res.Score, 55)
}

func TestScanSecurity_SensitiveLogging(t *testing.T) {
	res := ScanSecurity(code(
		`fun onLogin(user: User) {`,
		`    Log.d(TAG, "password is " + user.password)`,
		`}`,
	), "Kotlin")

	found := withTitle(res.Vulnerabilities, "Sensitive Data in Logs")
	require.Len(t, found, 1)
	assert.Equal(t, severity.High, found[0].Severity)
	assert.Equal(t, 2, found[0].Line)
}

func TestScanSecurity_Invariants(t *testing.T) {
	res := ScanSecurity(mixedSource, "Kotlin")
	require.NotEmpty(t, res.Vulnerabilities)

	type key struct {
		line  int
		title string
	}
	seen := map[key]bool{}
	for i, v := range res.Vulnerabilities {
		k := key{v.Line, v.Title}
		assert.False(t, seen[k], "duplicate finding %v", k)
		seen[k] = true
		if i > 0 {
			assert.LessOrEqual(t, res.Vulnerabilities[i-1].Severity.Ordinal(), v.Severity.Ordinal())
		}
		assert.NotEmpty(t, v.CWE, v.Title)
		assert.Positive(t, v.CVSSScore, v.Title)
	}

	assert.GreaterOrEqual(t, res.Score, 0)
	assert.LessOrEqual(t, res.Score, 100)
	assert.Equal(t, len(res.Vulnerabilities), res.Counts.Total)
	assert.Equal(t, 12, res.LinesScanned)
	assert.True(t, strings.HasPrefix(res.Summary, "Scanned 12 lines of Kotlin. Found "), res.Summary)
	assert.IsIncreasing(t, res.OWASPCategories)
}

func TestScanSecurity_Deterministic(t *testing.T) {
	a := ScanSecurity(mixedSource, "Kotlin")
	b := ScanSecurity(mixedSource, "Kotlin")
	a.Duration, b.Duration = 0, 0
	assert.Equal(t, a, b)

	assert.Equal(t, AnalyzeHealth(mixedSource, "Kotlin"), AnalyzeHealth(mixedSource, "Kotlin"))
}

func TestScanSecurity_HIPAAGating(t *testing.T) {
	res := ScanSecurity(code(
		`fun save(user: User) {`,
		`    Log.d(TAG, "saving " + user.email)`,
		`    prefs.edit().putString("email", user.email).apply()`,
		`    client.post("http://api.shop.io/users", user)`,
		`}`,
	), "Kotlin")

	require.NotNil(t, res.Compliance)
	assert.Empty(t, res.Compliance.IssuesFor(model.FrameworkHIPAA))
	assert.True(t, res.Compliance.HIPAACompliant)
	assert.False(t, res.Compliance.GDPRCompliant)
}

func TestAnalyzeHealth_MatchesHealthPackage(t *testing.T) {
	assert.Equal(t, health.AnalyzeCode(mixedSource, "Java"), AnalyzeHealth(mixedSource, "Java"))
}

func TestService_InputLimit(t *testing.T) {
	svc := NewService(WithMaxInputBytes(16))

	_, err := svc.ScanSecurity(context.Background(), strings.Repeat("x", 17), "Kotlin")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInputTooLarge))
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))

	_, err = svc.AnalyzeHealth(context.Background(), strings.Repeat("x", 17), "Kotlin")
	assert.True(t, errors.IsInvalidInput(err))

	_, err = svc.ScanSecurity(context.Background(), "val x = 1", "Kotlin")
	assert.NoError(t, err)
}

func TestService_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService().ScanSecurity(ctx, mixedSource, "Kotlin")
	require.Error(t, err)
	assert.Equal(t, errors.KindCanceled, errors.GetKind(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_RecordsMetrics(t *testing.T) {
	m := metrics.NewInMemoryCollector()
	svc := NewService(WithMetrics(m), WithDefaultLanguage("Kotlin"))

	res, err := svc.ScanSecurity(context.Background(), mixedSource, "")
	require.NoError(t, err)
	assert.Equal(t, "Kotlin", res.Language)

	assert.Equal(t, 1.0, m.GetCounter(metrics.ScansTotal.Name, "kind", KindSecurity, "grade", res.Grade))
	assert.Equal(t, float64(res.Counts.Critical), m.GetCounter(metrics.FindingsTotal.Name, "severity", "critical"))
	assert.Equal(t, float64(res.Score), m.GetGauge(metrics.LastSecurityScore.Name))
	assert.Len(t, m.GetHistogram(metrics.ScanDuration.Name, "kind", KindSecurity), 1)

	hres, err := svc.AnalyzeHealth(context.Background(), mixedSource, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{float64(hres.OverallScore)}, m.GetHistogram(metrics.HealthScore.Name))
}
