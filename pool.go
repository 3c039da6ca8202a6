package parallel

import (
	"sync"
	"time"

	"github.com/ygrebnov/parallel/metrics"
)

// Pool owns a fixed number of worker goroutines that run tasks honoring
// their declared dependencies. One mutex and condition variable guard a
// work set of heterogeneous taskHandles; a worker scans the set in
// insertion order, claims the first task whose dependency is terminal,
// runs it outside the lock, then wakes a bounded number of peers in
// proportion to how many downstream continuations the finished task just
// unblocked.
type Pool struct {
	cfg Config

	mu       sync.Mutex
	cond     *sync.Cond
	tasks    []taskHandle
	fifo     []taskHandle
	shutdown bool

	closeOnce sync.Once
	workersWG sync.WaitGroup

	submitted  metrics.Counter
	completed  metrics.Counter
	failed     metrics.Counter
	abandoned  metrics.Counter
	inflight   metrics.UpDownCounter
	durationMs metrics.Histogram
}

// New constructs a Pool from an explicit Config. cfg is copied; the caller
// retains ownership of the value passed in. NewOptions is the functional
// alternative for callers who prefer not to build a Config by hand.
func New(cfg *Config) (*Pool, error) {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
		if c.SafetyNetInterval == 0 {
			c.SafetyNetInterval = defaultSafetyNetInterval
		}
		if c.Metrics == nil {
			c.Metrics = defaultConfig().Metrics
		}
	}
	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	p := &Pool{cfg: c}
	p.cond = sync.NewCond(&p.mu)
	p.submitted = c.Metrics.Counter("parallel.tasks.submitted")
	p.completed = c.Metrics.Counter("parallel.tasks.completed")
	p.failed = c.Metrics.Counter("parallel.tasks.failed")
	p.abandoned = c.Metrics.Counter("parallel.tasks.abandoned")
	p.inflight = c.Metrics.UpDownCounter("parallel.tasks.inflight")
	p.durationMs = c.Metrics.Histogram("parallel.tasks.duration_ms")

	for i := uint(0); i < c.Workers; i++ {
		p.workersWG.Add(1)
		go p.workerLoop()
	}
	return p, nil
}

// WorkerCount reports the fixed number of worker goroutines the pool was
// built with.
func (p *Pool) WorkerCount() uint { return p.cfg.Workers }

// Submit constructs a Task from thunk and deps (fused into one void
// dependency via WhenAll), inserts it into the work set, wakes one idle
// worker, and returns the task's result Future. A free function, since a
// method cannot introduce the type parameter R.
func Submit[R any](p *Pool, thunk func() (R, error), deps ...futureLike) Future[R] {
	return SubmitTagged[R](p, nil, -1, thunk, deps...)
}

// SubmitTagged is Submit plus an id/index pair attached to any failure via
// TaskMetaError, the mechanism ExtractTaskID/ExtractTaskIndex rely on. The
// kernel executor uses it to tag each shard with its shard index.
func SubmitTagged[R any](p *Pool, id any, index int, thunk func() (R, error), deps ...futureLike) Future[R] {
	dep := fuseDeps(deps)
	t := newTask[R](id, index, thunk, dep)
	f := t.future()
	p.insert(t)
	return f
}

// SubmitNoDeps is a FIFO fast path for workloads where no task ever
// depends on another: it never scans for readiness and claims tasks in
// strict arrival order, avoiding the per-scan linear search of the
// dependency-aware lane. Tasks still run on the shared worker goroutines.
func SubmitNoDeps[R any](p *Pool, thunk func() (R, error)) Future[R] {
	t := newTask[R](nil, -1, thunk, Future[struct{}]{})
	f := t.future()

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		t.abandon()
		p.abandoned.Add(1)
		return f
	}
	p.fifo = append(p.fifo, t)
	p.submitted.Add(1)
	p.inflight.Add(1)
	p.mu.Unlock()
	p.cond.Signal()
	return f
}

func fuseDeps(deps []futureLike) Future[struct{}] {
	switch len(deps) {
	case 0:
		return Future[struct{}]{}
	case 1:
		if f, ok := deps[0].(Future[struct{}]); ok {
			return f
		}
	}
	return WhenAll(deps...)
}

// insert adds t to the work set and signals one worker. If the pool has
// already been closed, t is abandoned immediately instead — a task can
// never run after the shutdown flag has been observed true.
func (p *Pool) insert(t taskHandle) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		t.abandon()
		p.abandoned.Add(1)
		return
	}
	p.tasks = append(p.tasks, t)
	p.submitted.Add(1)
	p.inflight.Add(1)
	p.mu.Unlock()
	p.cond.Signal()
}

// workerLoop is one worker: scan for a ready task, run it, wake successors,
// repeat; otherwise wait on the condition, bounded by SafetyNetInterval as
// a lost-wakeup safety net.
func (p *Pool) workerLoop() {
	defer p.workersWG.Done()
	for {
		p.mu.Lock()
		if p.shutdown {
			p.mu.Unlock()
			return
		}
		if len(p.fifo) > 0 {
			t := p.fifo[0]
			p.fifo = p.fifo[1:]
			p.mu.Unlock()
			p.runOne(t)
			continue
		}

		idx := p.findReadyLocked()
		if idx < 0 {
			p.waitLocked()
			p.mu.Unlock()
			continue
		}
		t := p.tasks[idx]
		p.tasks = append(p.tasks[:idx], p.tasks[idx+1:]...)
		p.mu.Unlock()

		p.runOne(t)
	}
}

// findReadyLocked scans the work set in insertion order and returns the
// index of the first task whose dependency is terminal, or -1. Caller
// holds p.mu.
func (p *Pool) findReadyLocked() int {
	for i, t := range p.tasks {
		if t.isReady() {
			return i
		}
	}
	return -1
}

// waitLocked blocks on the condition until signalled or SafetyNetInterval
// elapses, whichever comes first. Caller holds p.mu; cond.Wait releases
// and reacquires it internally.
func (p *Pool) waitLocked() {
	timer := time.AfterFunc(p.cfg.SafetyNetInterval, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	p.cond.Wait()
	timer.Stop()
}

// runOne executes t outside the pool's lock, then applies the
// wake-propagation rule: after running a task that had K registered
// continuations, wake min(K, workers) additional workers, since completing
// it may have made up to K downstream tasks ready.
func (p *Pool) runOne(t taskHandle) {
	k := t.numberOfContinuations()
	start := time.Now()
	t.run()
	p.durationMs.Record(float64(time.Since(start).Milliseconds()))
	p.inflight.Add(-1)

	switch t.outcome() {
	case outcomeFailed:
		p.failed.Add(1)
	case outcomeAbandoned:
		p.abandoned.Add(1)
	default:
		p.completed.Add(1)
	}

	if w := int(p.cfg.Workers); k > w {
		k = w
	}
	if k > 0 {
		p.mu.Lock()
		for i := 0; i < k; i++ {
			p.cond.Signal()
		}
		p.mu.Unlock()
	}
}

// Close shuts the pool down: sets the shutdown flag, broadcasts so idle
// workers observe it, joins every worker goroutine, then abandons any task
// still in the work set. Idempotent and safe for concurrent callers.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		p.mu.Unlock()
		p.cond.Broadcast()

		p.workersWG.Wait()

		p.mu.Lock()
		remaining := append(p.tasks, p.fifo...)
		p.tasks = nil
		p.fifo = nil
		p.mu.Unlock()

		for _, t := range remaining {
			t.abandon()
			p.abandoned.Add(1)
			p.inflight.Add(-1)
		}
	})
}
