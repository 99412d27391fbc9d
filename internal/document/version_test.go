package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstVersion(t *testing.T) {
	require.Equal(t, "vA", FirstVersion(false))
	require.Equal(t, "v1", FirstVersion(true))
}

func TestNextVersionPrototype(t *testing.T) {
	v, err := NextVersion("vA", false)
	require.NoError(t, err)
	require.Equal(t, "vB", v)

	v, err = NextVersion("vY", false)
	require.NoError(t, err)
	require.Equal(t, "vZ", v)

	// 26-version ceiling is a hard error, not a wrap
	_, err = NextVersion("vZ", false)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestNextVersionProduction(t *testing.T) {
	v, err := NextVersion("v1", true)
	require.NoError(t, err)
	require.Equal(t, "v2", v)

	v, err = NextVersion("v9", true)
	require.NoError(t, err)
	require.Equal(t, "v10", v)
}

func TestNextVersionRejectsWrongClass(t *testing.T) {
	cases := []struct {
		label      string
		production bool
	}{
		{"v1", false},  // numeric label on a prototype
		{"vA", true},   // letter label on production
		{"A", false},   // missing prefix
		{"v", false},   // empty body
		{"v0", true},   // below v1
		{"vAB", false}, // more than one letter
		{"va", false},  // lowercase
	}
	for _, c := range cases {
		_, err := NextVersion(c.label, c.production)
		require.Error(t, err, "label %q production=%v", c.label, c.production)
	}
}

func TestPrevVersion(t *testing.T) {
	p, err := PrevVersion("vB", false)
	require.NoError(t, err)
	require.Equal(t, "vA", p)

	p, err = PrevVersion("vA", false)
	require.NoError(t, err)
	require.Empty(t, p)

	p, err = PrevVersion("v3", true)
	require.NoError(t, err)
	require.Equal(t, "v2", p)

	p, err = PrevVersion("v1", true)
	require.NoError(t, err)
	require.Empty(t, p)
}
