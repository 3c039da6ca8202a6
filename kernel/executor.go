// Package kernel shards a rank-1/2/3 index space across a parallel.Pool,
// invoking a work function once per index the way an OpenCL kernel is
// invoked once per work item.
package kernel

import (
	"fmt"

	"github.com/ygrebnov/parallel"
)

// IndexState is the per-shard-task index tuple a work function observes.
// One instance is handed to each in-flight shard task and reused across
// its iterations; passing it as an argument rather than hiding it in
// goroutine-local storage keeps work functions testable in isolation.
type IndexState struct {
	X, Y, Z int
}

// Executor shards global-size index spaces across the workers of a
// parallel.Pool.
type Executor struct {
	pool  *parallel.Pool
	slots *slotPool
}

// NewExecutor builds an Executor over pool. The slot pool's capacity
// matches the pool's fixed worker count, since at most that many shards can
// ever be running concurrently.
func NewExecutor(pool *parallel.Pool) *Executor {
	return &Executor{pool: pool, slots: newSlotPool(pool.WorkerCount())}
}

// Execute1D runs fn once per index in [offset, offset+global).
func (e *Executor) Execute1D(global, offset int, fn func(*IndexState)) parallel.Future[struct{}] {
	return e.execute(global, 1, 1, offset, 0, 0, fn)
}

// Execute2D runs fn once per index in the 2-D grid global, offset by
// offset, in row-major order.
func (e *Executor) Execute2D(global, offset [2]int, fn func(*IndexState)) parallel.Future[struct{}] {
	return e.execute(global[0], global[1], 1, offset[0], offset[1], 0, fn)
}

// Execute3D runs fn once per index in the 3-D grid global, offset by
// offset, in row-major order.
func (e *Executor) Execute3D(global, offset [3]int, fn func(*IndexState)) parallel.Future[struct{}] {
	return e.execute(global[0], global[1], global[2], offset[0], offset[1], offset[2], fn)
}

// execute splits W = g0*g1*g2 linear indices into
// ceil(W / ceil(W/P)) shards (P = pool.WorkerCount()), submits one task per
// shard, and returns a single void Future that becomes Ready once every
// shard does, via parallel.WhenAll. The last shard may be smaller than the
// others when the worker count does not divide the total evenly.
func (e *Executor) execute(g0, g1, g2, o0, o1, o2 int, fn func(*IndexState)) parallel.Future[struct{}] {
	if g0 < 0 || g1 < 0 || g2 < 0 {
		panic(fmt.Sprintf("parallel/kernel: negative global size (%d,%d,%d)", g0, g1, g2))
	}
	total := g0 * g1 * g2
	if total == 0 {
		return parallel.WhenAll()
	}

	workers := int(e.pool.WorkerCount())
	if workers <= 0 {
		workers = 1
	}
	shardSize := ceilDiv(total, workers)
	numShards := ceilDiv(total, shardSize)

	futures := make([]parallel.Future[struct{}], 0, numShards)
	for shard := 0; shard < numShards; shard++ {
		start := shard * shardSize
		end := start + shardSize
		if end > total {
			end = total
		}
		futures = append(futures, e.submitShard(shard, start, end, g0, g1, o0, o1, o2, fn))
	}

	return parallel.WhenAllOf(futures)
}

func (e *Executor) submitShard(shard, start, end, g0, g1, o0, o1, o2 int, fn func(*IndexState)) parallel.Future[struct{}] {
	return parallel.SubmitTagged(e.pool, "kernel-shard", shard, func() (struct{}, error) {
		slot := e.slots.Get()
		defer e.slots.Put(slot)

		for j := start; j < end; j++ {
			slot.X = o0 + j%g0
			slot.Y = o1 + (j/g0)%g1
			slot.Z = o2 + j/(g0*g1)
			fn(slot)
		}
		return struct{}{}, nil
	})
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
