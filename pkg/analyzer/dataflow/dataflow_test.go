package dataflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
)

func build(lines ...string) *Context {
	return Build(srcline.New(strings.Join(lines, "\n")))
}

func TestBuild_FunctionParameters(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"kotlin", "fun findUser(userId: String, limit: Int = 10): User {", []string{"userId", "limit"}},
		{"go", "func (s *Store) Find(ctx context.Context, name string) error {", []string{"ctx", "name"}},
		{"python", "def lookup(self, uid, *rest):", []string{"uid", "rest"}},
		{"javascript", "function render(req, res) {", []string{"req", "res"}},
		{"java", "public User find(String accountId, int page) {", []string{"accountId", "page"}},
		{"typescript", "function load(path: string) {", []string{"path"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := build(tt.line)
			for _, p := range tt.want {
				assert.Contains(t, ctx.FunctionParams, p)
			}
			assert.Len(t, ctx.FunctionParams, len(tt.want))
		})
	}
}

func TestBuild_UserInputAssignments(t *testing.T) {
	ctx := build(
		`val name = intent.getStringExtra("name")`,
		`String q = request.getParameter("q");`,
		`cmd := r.FormValue("cmd")`,
		`val label = "Hello " + name`,
		`val total = count + 1`,
	)

	for _, v := range []string{"name", "q", "cmd", "label"} {
		assert.Contains(t, ctx.UserInputVars, v)
	}
	assert.NotContains(t, ctx.UserInputVars, "total")
}

func TestBuild_IgnoresComparisonsAndComments(t *testing.T) {
	ctx := build(
		`if (mode == request.mode) {`,
		`// val hidden = intent.getStringExtra("x")`,
		`if (flag >= input()) {`,
	)
	assert.Empty(t, ctx.UserInputVars)
}

func TestBuild_DBAndFileVars(t *testing.T) {
	ctx := build(
		`db.rawQuery(sql, args)`,
		`val f = File(baseDir, fileName)`,
	)
	assert.Contains(t, ctx.DBVars, "sql")
	assert.Contains(t, ctx.DBVars, "args")
	assert.Contains(t, ctx.FileVars, "baseDir")
	assert.Contains(t, ctx.FileVars, "fileName")
}

func TestContext_TaintedIn(t *testing.T) {
	ctx := build(
		"fun findUser(userId: String) {",
		`val raw = intent.getStringExtra("q")`,
	)

	name, kind, ok := ctx.TaintedIn(`val sql = "SELECT * FROM users WHERE id = " + userId`)
	assert.True(t, ok)
	assert.Equal(t, "userId", name)
	assert.Equal(t, KindParameter, kind)

	name, kind, ok = ctx.TaintedIn(`exec(raw)`)
	assert.True(t, ok)
	assert.Equal(t, "raw", name)
	assert.Equal(t, KindInput, kind)

	_, kind, ok = ctx.TaintedIn(`Runtime.getRuntime().exec(request.getParameter("c"))`)
	assert.True(t, ok)
	assert.Equal(t, KindInput, kind)

	_, _, ok = ctx.TaintedIn(`val total = a + b`)
	assert.False(t, ok)
}

func TestContext_TaintedInNamesAssignmentSource(t *testing.T) {
	ctx := build(
		"fun findUser(userId: String) {",
		`    val q = "SELECT * FROM users WHERE id = " + userId`,
	)
	require.Contains(t, ctx.UserInputVars, "q")

	name, kind, ok := ctx.TaintedIn(`    val q = "SELECT * FROM users WHERE id = " + userId`)
	assert.True(t, ok)
	assert.Equal(t, "userId", name)
	assert.Equal(t, KindParameter, kind)

	name, kind, ok = ctx.TaintedIn(`    db.rawQuery(q, null)`)
	assert.True(t, ok)
	assert.Equal(t, "q", name)
	assert.Equal(t, KindInput, kind)

	name, _, ok = ctx.TaintedIn(`    q = "SELECT 1"`)
	assert.True(t, ok)
	assert.Equal(t, "q", name)
}

func TestContext_IsUserInput(t *testing.T) {
	ctx := NewContext()
	ctx.FunctionParams["p"] = struct{}{}
	ctx.UserInputVars["u"] = struct{}{}

	assert.True(t, ctx.IsUserInput("p"))
	assert.True(t, ctx.IsUserInput("u"))
	assert.False(t, ctx.IsUserInput("other"))
}

func TestAssignIndex(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"a = b", 2},
		{"a := b", 3},
		{"a == b", -1},
		{"a != b", -1},
		{"x => y", -1},
		{`s = "k=v"`, 2},
		{`f("k=v")`, -1},
		{"a += b", -1},
		{"// a = b", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, assignIndex(tt.line), tt.line)
	}
}
