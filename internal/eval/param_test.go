package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramRunner() (*Runner, *Env) {
	env := NewEnv(nil)
	env.Set("var", "abcd")
	env.Set("empty", "")
	env.SetArgs([]string{"posh", "one", "two"})
	r := &Runner{Env: env}
	return r, env
}

func TestExpandParamOperators(t *testing.T) {
	r, env := paramRunner()
	ctx := context.Background()
	tests := []struct {
		spec string
		want string
	}{
		{"var", "abcd"},
		{"#var", "4"},
		{"#missing", "0"},
		{"missing:-def", "def"},
		{"missing-def", "def"},
		{"empty:-def", "def"},
		{"empty-def", ""},
		{"var:+alt", "alt"},
		{"empty:+alt", ""},
		{"empty+alt", "alt"},
		{"var#ab", "cd"},
		{"var#z", "abcd"},
		{"var%cd", "ab"},
		{"var/b?/BC", "aBCd"},
		{"var//?/X", "XXXX"},
		{"var/", "abcd"},
		{"1", "one"},
		{"#", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := r.expandParam(ctx, tt.spec, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandParamAssignDefault(t *testing.T) {
	r, env := paramRunner()
	ctx := context.Background()

	got, err := r.expandParam(ctx, "newvar:=seeded", env)
	require.NoError(t, err)
	assert.Equal(t, "seeded", got)
	v, ok := env.Get("newvar")
	assert.True(t, ok)
	assert.Equal(t, "seeded", v)

	// A set, non-empty variable is left alone.
	got, err = r.expandParam(ctx, "var:=clobber", env)
	require.NoError(t, err)
	assert.Equal(t, "abcd", got)
}

func TestExpandParamRequired(t *testing.T) {
	r, env := paramRunner()
	ctx := context.Background()

	_, err := r.expandParam(ctx, "missing?not here", env)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsetVariable)
	assert.Contains(t, err.Error(), "not here")

	_, err = r.expandParam(ctx, "empty:?need value", env)
	assert.ErrorIs(t, err, ErrUnsetVariable)

	got, err := r.expandParam(ctx, "empty?msg", env)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestExpandParamBadSubstitution(t *testing.T) {
	r, env := paramRunner()
	ctx := context.Background()
	for _, spec := range []string{"", "%bad", "1x", "var~oops", "3=x"} {
		_, err := r.expandParam(ctx, spec, env)
		assert.ErrorIs(t, err, ErrBadSubstitution, "spec %q", spec)
	}
}

func TestExpandParamStrict(t *testing.T) {
	r, env := paramRunner()
	r.Strict = true
	ctx := context.Background()

	_, err := r.expandParam(ctx, "missing", env)
	assert.ErrorIs(t, err, ErrUnsetVariable)

	// Operators that handle the unset case themselves stay usable.
	got, err := r.expandParam(ctx, "missing:-def", env)
	require.NoError(t, err)
	assert.Equal(t, "def", got)

	got, err = r.expandParam(ctx, "empty", env)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSplitPatternRepl(t *testing.T) {
	tests := []struct {
		operand, pat, repl string
	}{
		{"a/b", "a", "b"},
		{"a", "a", ""},
		{`a\/b/c`, `a\/b`, "c"},
		{"a/b/c", "a", "b/c"},
		{`a/\/`, "a", "/"},
		{`a/x\/y`, "a", "x/y"},
	}
	for _, tt := range tests {
		pat, repl := splitPatternRepl(tt.operand)
		assert.Equal(t, tt.pat, pat, "operand %q", tt.operand)
		assert.Equal(t, tt.repl, repl, "operand %q", tt.operand)
	}
}
