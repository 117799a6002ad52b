package eval

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvScopeChain(t *testing.T) {
	root := NewEnv(nil)
	root.Set("a", "1")

	child := NewChild(root)
	v, ok := child.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	// Plain Set walks to the owning scope.
	child.Set("a", "2")
	v, _ = root.Get("a")
	assert.Equal(t, "2", v)

	// SetLocal shadows without touching the parent.
	child.SetLocal("b", "local")
	_, ok = root.Get("b")
	assert.False(t, ok)

	// A new name set through a child lands at the root, so it survives
	// the scope.
	child.Set("c", "kept")
	v, ok = root.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "kept", v)
}

func TestEnvUnset(t *testing.T) {
	root := NewEnv(nil)
	root.Set("x", "1")
	child := NewChild(root)
	child.SetLocal("x", "2")

	child.Unset("x")
	_, ok := child.Get("x")
	assert.False(t, ok)
	_, ok = root.Get("x")
	assert.False(t, ok)
}

func TestEnvArgsShadowing(t *testing.T) {
	root := NewEnv(nil)
	root.SetArgs([]string{"posh", "a", "b"})

	child := NewChild(root)
	assert.Equal(t, []string{"posh", "a", "b"}, child.Args())

	child.SetArgs([]string{"fn", "x"})
	assert.Equal(t, []string{"fn", "x"}, child.Args())
	assert.Equal(t, []string{"posh", "a", "b"}, root.Args())
}

func TestEnvShift(t *testing.T) {
	env := NewEnv(nil)
	env.SetArgs([]string{"posh", "a", "b", "c"})

	require.True(t, env.Shift(1))
	assert.Equal(t, []string{"posh", "b", "c"}, env.Args())

	require.True(t, env.Shift(2))
	assert.Equal(t, []string{"posh"}, env.Args())

	assert.False(t, env.Shift(1))
}

func TestEnvLookupSpecials(t *testing.T) {
	env := NewEnv(nil)
	env.SetArgs([]string{"posh", "one", "two"})
	env.SetStatus(7)

	v, ok := env.Lookup("#")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	v, _ = env.Lookup("?")
	assert.Equal(t, "7", v)

	v, _ = env.Lookup("*")
	assert.Equal(t, "one two", v)

	v, _ = env.Lookup("@")
	assert.Equal(t, "one two", v)

	v, _ = env.Lookup("0")
	assert.Equal(t, "posh", v)

	v, _ = env.Lookup("2")
	assert.Equal(t, "two", v)

	_, ok = env.Lookup("3")
	assert.False(t, ok)

	v, ok = env.Lookup("$")
	assert.True(t, ok)
	_, err := strconv.Atoi(v)
	assert.NoError(t, err)
}

func TestEnvIFS(t *testing.T) {
	env := NewEnv(nil)
	assert.Equal(t, " \t\n", env.IFS())

	env.Set("IFS", ":")
	assert.Equal(t, ":", env.IFS())

	// Set-but-empty is distinct from unset.
	env.Set("IFS", "")
	assert.Equal(t, "", env.IFS())

	env.Unset("IFS")
	assert.Equal(t, " \t\n", env.IFS())
}

func TestEnvSubshellIsolation(t *testing.T) {
	env := NewEnv(nil)
	env.Set("x", "outer")
	env.SetArgs([]string{"posh", "a"})
	env.SetStatus(3)
	child := NewChild(env)
	child.SetLocal("y", "shadowed")

	sub := child.Subshell()
	v, _ := sub.Get("x")
	assert.Equal(t, "outer", v)
	v, _ = sub.Get("y")
	assert.Equal(t, "shadowed", v)
	assert.Equal(t, []string{"posh", "a"}, sub.Args())
	assert.Equal(t, 3, sub.Status())

	sub.Set("x", "inner")
	v, _ = env.Get("x")
	assert.Equal(t, "outer", v)

	sub.SetStatus(9)
	assert.Equal(t, 3, env.Status())
}

func TestEnvExportAndEnviron(t *testing.T) {
	env := NewEnv(nil)
	env.Set("POSH_TEST_ONLY", "yes")
	env.Set("POSH_TEST_HIDDEN", "no")
	env.Export("POSH_TEST_ONLY")

	environ := env.Environ()
	assert.Contains(t, environ, "POSH_TEST_ONLY=yes")
	assert.NotContains(t, environ, "POSH_TEST_HIDDEN=no")
}

func TestEnvSetFromEnviron(t *testing.T) {
	env := NewEnv(nil)
	env.SetFromEnviron([]string{"A=1", "B=x=y", "MALFORMED"})

	v, _ := env.Get("A")
	assert.Equal(t, "1", v)
	v, _ = env.Get("B")
	assert.Equal(t, "x=y", v)
	_, ok := env.Get("MALFORMED")
	assert.False(t, ok)
}
