package eval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandDefaultFieldSplitting(t *testing.T) {
	out, _ := runShell(t, `count() { echo $#; }
words1="Cargo.toml Cargo.lock test.py"
count $words1
`)
	assert.Equal(t, "3\n", out)
}

func TestExpandCustomIFS(t *testing.T) {
	out, _ := runShell(t, `count() { echo $#; }
words2="Cargo.toml/Cargo.lock#test.py"
IFS="/#"
count $words2
count "$words2"
echo "$words2"
`)
	assert.Equal(t, "3\n1\nCargo.toml/Cargo.lock#test.py\n", out)
}

func TestExpandAssignmentValueNotSplit(t *testing.T) {
	out, _ := runShell(t, `IFS="/"
v=a/b/c
copy=$v
echo "$copy"
`)
	assert.Equal(t, "a/b/c\n", out)
}

func TestExpandUnsetIFSRestoresDefault(t *testing.T) {
	out, _ := runShell(t, `count() { echo $#; }
IFS="/"
v="a b"
count $v
unset IFS
count $v
`)
	assert.Equal(t, "1\n2\n", out)
}

func TestExpandEmptyIFSDisablesSplitting(t *testing.T) {
	out, _ := runShell(t, `count() { echo $#; }
IFS=""
v="a b c"
count $v
`)
	assert.Equal(t, "1\n", out)
}

func TestExpandPatternSubstitution(t *testing.T) {
	out, _ := runShell(t, `var=abcd
echo ${var/b?/BC}
echo ${var/?/X}
echo ${var//?/X}
echo ${var/bc}
`)
	assert.Equal(t, "aBCd\nXbcd\nXXXX\nad\n", out)
}

func TestExpandSubstitutionEscapedSlashRepl(t *testing.T) {
	out, _ := runShell(t, `v=a.b.c
echo ${v//./\/}
`)
	assert.Equal(t, "a/b/c\n", out)
}

func TestExpandPrefixSuffixStrip(t *testing.T) {
	out, _ := runShell(t, `v=foo.tar.gz
echo ${v%.*} ${v%%.*} ${v#*.} ${v##*.}
`)
	assert.Equal(t, "foo.tar foo tar.gz gz\n", out)
}

func TestExpandDefaults(t *testing.T) {
	out, _ := runShell(t, `echo ${missing:-fallback}
x=""
echo ${x:-empty}
echo ${x-dash}_
echo ${y:=assigned}
echo $y
n=5
echo ${n:+yes}
echo ${x:+never}_
`)
	assert.Equal(t, "fallback\nempty\n_\nassigned\nassigned\nyes\n_\n", out)
}

func TestExpandDefaultOperandIsExpanded(t *testing.T) {
	out, _ := runShell(t, `fallback=deep
echo ${missing:-$fallback}
echo ${missing:-$((2*3))}
`)
	assert.Equal(t, "deep\n6\n", out)
}

func TestExpandDefaultOperandFieldSplitting(t *testing.T) {
	// The substituted default is one piece carrying the reference's own
	// quoting, so an unquoted reference still field-splits the result.
	out, _ := runShell(t, `count() { echo $#; }
count ${missing:-a b}
count "${missing:-a b}"
`)
	assert.Equal(t, "2\n1\n", out)
}

func TestExpandLength(t *testing.T) {
	out, _ := runShell(t, `v=hello
echo ${#v} ${#missing}
`)
	assert.Equal(t, "5 0\n", out)
}

func TestExpandRequiredUnset(t *testing.T) {
	out, status := runShell(t, "echo ${missing?is required}\n")
	assert.Equal(t, "", out)
	assert.Equal(t, 1, status)
}

func TestExpandCmdSub(t *testing.T) {
	out, _ := runShell(t, `a=1
x=$(echo $a)
echo $x
echo `+"`echo back`"+`
echo $(echo outer $(echo inner))
`)
	assert.Equal(t, "1\nback\nouter inner\n", out)
}

func TestExpandCmdSubStripsTrailingNewlines(t *testing.T) {
	out, _ := runShell(t, "echo [$(echo hi)]\n")
	assert.Equal(t, "[hi]\n", out)
}

func TestExpandCmdSubDoesNotLeakAssignments(t *testing.T) {
	out, _ := runShell(t, `v=outer
x=$(v=inner; echo $v)
echo $x $v
`)
	assert.Equal(t, "inner outer\n", out)
}

func TestExpandArith(t *testing.T) {
	out, _ := runShell(t, `b=2
echo $((b+1))
a=1
echo $((a + $((b))))
echo "$((2*3))"
`)
	assert.Equal(t, "3\n3\n6\n", out)
}

func TestExpandFunctionPositionalArith(t *testing.T) {
	out, status := runShell(t, `func1() {
	echo $(($1-1))
}
func1 7
`)
	assert.Equal(t, "6\n", out)
	assert.Equal(t, 0, status)
}

func TestExpandTilde(t *testing.T) {
	out, _ := runShell(t, `HOME=/tmp/posh-home
echo ~/x
echo ~
echo "~/x"
echo a~b
`)
	assert.Equal(t, "/tmp/posh-home/x\n/tmp/posh-home\n~/x\na~b\n", out)
}

func TestExpandSpecialParams(t *testing.T) {
	out, _ := runShell(t, `set -- one two
echo $# $1 $2
echo "$*"
echo $0
`)
	assert.Equal(t, "2 one two\none two\nposh\n", out)
}

func TestExpandQuoteRemoval(t *testing.T) {
	out, _ := runShell(t, `echo a"b c"d
echo 'lit $x'
echo "esc \" quote"
`)
	assert.Equal(t, "ab cd\nlit $x\nesc \" quote\n", out)
}

func TestExpandGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	out, _ := runShell(t, "echo *.go\n")
	assert.Equal(t, "a.go b.go\n", out)

	out, _ = runShell(t, "echo *.nomatch\n")
	assert.Equal(t, "*.nomatch\n", out)

	out, _ = runShell(t, "echo \"*.go\"\n")
	assert.Equal(t, "*.go\n", out)
}

func TestExpandQuotedSubstitutionSingleField(t *testing.T) {
	out, _ := runShell(t, `count() { echo $#; }
v="a b c"
count "$v"
count "$(echo x y)"
`)
	assert.Equal(t, "1\n1\n", out)
}

func TestExpandEmptyUnquotedVanishes(t *testing.T) {
	out, _ := runShell(t, `count() { echo $#; }
count $missing
count "$missing"
`)
	assert.Equal(t, "0\n1\n", out)
}
