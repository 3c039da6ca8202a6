package kernel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ygrebnov/parallel"
)

func newTestPool(t *testing.T, workers uint) *parallel.Pool {
	t.Helper()
	p, err := parallel.NewOptions(parallel.WithWorkers(workers))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestExecutor_Execute1D_VisitsEveryIndexOnce(t *testing.T) {
	p := newTestPool(t, 3)
	e := NewExecutor(p)

	const n = 97 // deliberately not a multiple of the worker count
	var mu sync.Mutex
	counts := make([]int, n)

	f := e.Execute1D(n, 0, func(idx *IndexState) {
		mu.Lock()
		counts[idx.X]++
		mu.Unlock()
	})
	require.NoError(t, f.Wait())
	_, err := f.Get()
	require.NoError(t, err)

	for i, c := range counts {
		require.Equalf(t, 1, c, "index %d visited %d times, want exactly 1", i, c)
	}
}

// A 4x4 matrix kernel with global size (2,1) and offset (1,2) increments
// exactly M[2*4+1] and M[2*4+2].
func TestExecutor_Execute2D_Offset(t *testing.T) {
	p := newTestPool(t, 4)
	e := NewExecutor(p)

	const width = 4
	matrix := make([]int, width*width)
	var mu sync.Mutex

	f := e.Execute2D([2]int{2, 1}, [2]int{1, 2}, func(idx *IndexState) {
		mu.Lock()
		matrix[idx.Y*width+idx.X]++
		mu.Unlock()
	})
	require.NoError(t, f.Wait())

	want := make([]int, width*width)
	want[2*width+1] = 1
	want[2*width+2] = 1
	require.Equal(t, want, matrix)
}

func TestExecutor_Execute3D_RowMajorDecoding(t *testing.T) {
	p := newTestPool(t, 2)
	e := NewExecutor(p)

	type point struct{ x, y, z int }
	var mu sync.Mutex
	var seen []point

	f := e.Execute3D([3]int{2, 2, 2}, [3]int{0, 0, 0}, func(idx *IndexState) {
		mu.Lock()
		seen = append(seen, point{idx.X, idx.Y, idx.Z})
		mu.Unlock()
	})
	require.NoError(t, f.Wait())

	require.Len(t, seen, 8)
	unique := map[point]bool{}
	for _, p := range seen {
		unique[p] = true
	}
	require.Len(t, unique, 8, "every (x,y,z) combination in a 2x2x2 grid must be visited exactly once")
}

func TestExecutor_ZeroSizeIsImmediatelyReady(t *testing.T) {
	p := newTestPool(t, 1)
	e := NewExecutor(p)

	f := e.Execute1D(0, 0, func(*IndexState) { t.Fatal("fn must not be called for an empty grid") })
	terminal, err := f.IsTerminal()
	require.NoError(t, err)
	require.True(t, terminal)
}

func TestExecutor_FinalShortShard(t *testing.T) {
	p := newTestPool(t, 5)
	e := NewExecutor(p)

	const n = 11 // 11 / 5 workers forces an uneven, short final shard
	var mu sync.Mutex
	visited := make(map[int]bool)

	f := e.Execute1D(n, 0, func(idx *IndexState) {
		mu.Lock()
		visited[idx.X] = true
		mu.Unlock()
	})
	require.NoError(t, f.Wait())
	require.Len(t, visited, n)
}
