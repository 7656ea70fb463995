package likelihood

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modsim/dnest4/pkg/rng"
)

func TestNewPanicsOnOutOfRangeTiebreaker(t *testing.T) {
	require.Panics(t, func() { New(1.0, 1.0) })
	require.Panics(t, func() { New(1.0, -0.1) })
}

func TestLessComparesValueFirst(t *testing.T) {
	a := New(1.0, 0.9)
	b := New(2.0, 0.1)
	require.True(t, Less(a, b))
	require.False(t, Less(b, a))
}

func TestLessBreaksTiesOnTiebreaker(t *testing.T) {
	a := New(1.0, 0.2)
	b := New(1.0, 0.8)
	require.True(t, Less(a, b))
	require.False(t, Less(b, a))
}

func TestPerturbKeepsTiebreakerInRange(t *testing.T) {
	r := rng.New(11)
	typ := New(0.5, 0.5)
	for i := 0; i < 1000; i++ {
		typ.Perturb(r)
		require.GreaterOrEqual(t, typ.Tiebreaker, 0.0)
		require.Less(t, typ.Tiebreaker, 1.0)
	}
}

func TestWriteReadRoundTripsExactly(t *testing.T) {
	typ := New(-3.14159265, 0.314159)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, typ.Write(w))
	require.NoError(t, w.Flush())

	var restored Type
	require.NoError(t, restored.Read(bufio.NewReader(&buf)))
	require.Equal(t, typ, restored)
}
