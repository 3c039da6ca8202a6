package parallel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhenAll_ZeroInputsIsImmediatelyReady(t *testing.T) {
	f := WhenAll()
	terminal, err := f.IsTerminal()
	require.NoError(t, err)
	require.True(t, terminal)
}

func TestWhenAll_ReadyOnlyWhenBothTerminal(t *testing.T) {
	pa := NewPromise[int]()
	pb := NewPromise[string]()

	all := WhenAll(pa.Future(), pb.Future())
	terminal, _ := all.IsTerminal()
	require.False(t, terminal)

	require.NoError(t, pa.SetValue(1))
	terminal, _ = all.IsTerminal()
	require.False(t, terminal, "when_all must wait for every input")

	require.NoError(t, pb.SetValue("x"))
	require.NoError(t, all.Wait())
	terminal, _ = all.IsTerminal()
	require.True(t, terminal)
}

func TestWhenAny_ReadyOnFirstTerminal(t *testing.T) {
	pa := NewPromise[int]()
	pb := NewPromise[int]()

	any := WhenAny(pa.Future(), pb.Future())
	terminal, _ := any.IsTerminal()
	require.False(t, terminal)

	require.NoError(t, pa.SetValue(1))
	require.NoError(t, any.Wait())
	terminal, _ = any.IsTerminal()
	require.True(t, terminal)

	// Settling the second input afterward must be a harmless no-op.
	require.NoError(t, pb.SetValue(2))
}

// R = (Fa and Fb) or Fc: R resolves either once both a and b have, or
// once c has.
func TestCombinator_WhenAllAndWhenAny(t *testing.T) {
	t.Run("settle a then b", func(t *testing.T) {
		pa, pb, pc := NewPromise[int](), NewPromise[int](), NewPromise[int]()
		r := Or(And(pa.Future(), pb.Future()), pc.Future())

		terminal, _ := r.IsTerminal()
		require.False(t, terminal)

		require.NoError(t, pa.SetValue(1))
		terminal, _ = r.IsTerminal()
		require.False(t, terminal)

		require.NoError(t, pb.SetValue(2))
		require.NoError(t, r.Wait())
		terminal, _ = r.IsTerminal()
		require.True(t, terminal)
	})

	t.Run("settle only c", func(t *testing.T) {
		pa, pb, pc := NewPromise[int](), NewPromise[int](), NewPromise[int]()
		r := Or(And(pa.Future(), pb.Future()), pc.Future())

		require.NoError(t, pc.SetValue(3))
		require.NoError(t, r.Wait())
		terminal, _ := r.IsTerminal()
		require.True(t, terminal)
	})
}

func TestWhenAll_DoesNotShortCircuitOnFailureOrAbandon(t *testing.T) {
	pa := NewPromise[int]()
	pb := NewPromise[int]()

	all := WhenAll(pa.Future(), pb.Future())
	require.NoError(t, pa.SetFailure(errBoom))
	pb.Abandon()

	require.NoError(t, all.Wait())
	terminal, _ := all.IsTerminal()
	require.True(t, terminal)
	v, err := all.Get()
	require.NoError(t, err)
	require.Equal(t, struct{}{}, v)
}

var errBoom = &panicValue{v: "boom"}
