package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arithEnv() *Env {
	env := NewEnv(nil)
	env.Set("b", "2")
	env.Set("x", "7")
	env.Set("empty", "")
	env.Set("words", "not a number")
	return env
}

func TestEvalArith(t *testing.T) {
	env := arithEnv()
	tests := []struct {
		expr string
		want int64
	}{
		{"1+1", 2},
		{"b+1", 3},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10-2-3", 5},
		{"10/3", 3},
		{"10%3", 1},
		{"-x", -7},
		{"- -x", 7},
		{"+x", 7},
		{"!0", 1},
		{"!5", 0},
		{"~0", -1},
		{"1 && 2", 1},
		{"0 && 2", 0},
		{"0 || 0", 0},
		{"0 || 3", 1},
		{"1 < 2", 1},
		{"2 <= 1", 0},
		{"3 >= 3", 1},
		{"1 == 1", 1},
		{"3 != 3", 0},
		{"1 << 4", 16},
		{"32 >> 2", 8},
		{"7 & 3", 3},
		{"4 | 1", 5},
		{"6 ^ 3", 5},
		{"empty + 1", 1},
		{"nosuchvar + 5", 5},
		{"words + 1", 1},
		{"$b * 3", 6},
		{"${b} + x", 9},
		{"$((b)) + 1", 3},
		{"$((b + $((x)))) * 2", 18},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalArith(tt.expr, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalArithErrors(t *testing.T) {
	env := arithEnv()
	tests := []struct {
		expr string
		want error
	}{
		{"1/0", ErrDivideByZero},
		{"5%0", ErrDivideByZero},
		{"x / (b - 2)", ErrDivideByZero},
		{"1+", ErrArithSyntax},
		{"(1", ErrArithSyntax},
		{"1 2", ErrArithSyntax},
		{"1 @ 2", ErrArithSyntax},
		{"", ErrArithSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := evalArith(tt.expr, env)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvalArithShortCircuit(t *testing.T) {
	env := arithEnv()

	// The right operand must not be evaluated when the left decides.
	got, err := evalArith("0 && 1/0", env)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	got, err = evalArith("1 || 1/0", env)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestEvalArithPositionals(t *testing.T) {
	env := NewEnv(nil)
	env.SetArgs([]string{"posh", "7", "3"})

	got, err := evalArith("$1 - 1", env)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)

	got, err = evalArith("$1 * $2", env)
	require.NoError(t, err)
	assert.Equal(t, int64(21), got)
}
