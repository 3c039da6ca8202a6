package parallel

import "fmt"

// taskHandle is the type-erased view the Pool's work set operates over;
// it is satisfied by *task[R] for every R, which is what lets one
// []taskHandle hold tasks of heterogeneous result type.
type taskHandle interface {
	isReady() bool
	run()
	abandon()
	numberOfContinuations() int
	outcome() taskOutcome
}

// taskOutcome classifies how a task's promise was ultimately resolved, for
// the pool's metrics counters (tasks-completed / tasks-failed /
// tasks-abandoned).
type taskOutcome int

const (
	outcomePending taskOutcome = iota
	outcomeReady
	outcomeFailed
	outcomeAbandoned
)

// task wraps a thunk, its optional dependency future, and the promise its
// result feeds. A nil dependency means the task is ready immediately.
type task[R any] struct {
	id      any
	index   int
	thunk   func() (R, error)
	dep     Future[struct{}]
	promise *Promise[R]
	done    taskOutcome
}

func newTask[R any](id any, index int, thunk func() (R, error), dep Future[struct{}]) *task[R] {
	return &task[R]{
		id:      id,
		index:   index,
		thunk:   thunk,
		dep:     dep,
		promise: NewPromise[R](),
	}
}

func (t *task[R]) future() Future[R] { return t.promise.Future() }

func (t *task[R]) isReady() bool {
	if !t.dep.Valid() {
		return true
	}
	terminal, _ := t.dep.IsTerminal()
	return terminal
}

func (t *task[R]) numberOfContinuations() int {
	n, _ := t.promise.Future().NumberOfContinuations()
	return n
}

func (t *task[R]) abandon() {
	t.promise.Abandon()
	t.done = outcomeAbandoned
}

func (t *task[R]) outcome() taskOutcome { return t.done }

// run executes the thunk, recovering a panic as a tagged failure. The
// thunk is dropped before the promise resolves so its captured state is
// released before any continuation runs.
func (t *task[R]) run() {
	thunk := t.thunk
	t.thunk = nil

	var (
		result R
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &panicValue{v: r}
			}
		}()
		result, err = thunk()
	}()

	if err != nil {
		t.promise.SetFailure(t.tag(err))
		t.done = outcomeFailed
		return
	}
	t.promise.SetValue(result)
	t.done = outcomeReady
}

func (t *task[R]) tag(err error) error {
	if t.id == nil {
		return err
	}
	return &taskTaggedError{err: err, id: t.id, index: t.index}
}

// TaskMetaError is implemented by errors that carry task identification:
// the id and index a task was given by SubmitTagged.
type TaskMetaError interface {
	error
	TaskID() any
	TaskIndex() int
}

type taskTaggedError struct {
	err   error
	id    any
	index int
}

func (e *taskTaggedError) Error() string {
	return fmt.Sprintf("task %v (index %d): %v", e.id, e.index, e.err)
}

func (e *taskTaggedError) Unwrap() error  { return e.err }
func (e *taskTaggedError) TaskID() any    { return e.id }
func (e *taskTaggedError) TaskIndex() int { return e.index }

// ExtractTaskID returns the id attached to err by SubmitTagged, if any.
func ExtractTaskID(err error) (any, bool) {
	var tagged TaskMetaError
	if asMetaError(err, &tagged) {
		return tagged.TaskID(), true
	}
	return nil, false
}

// ExtractTaskIndex returns the index attached to err by SubmitTagged, if any.
func ExtractTaskIndex(err error) (int, bool) {
	var tagged TaskMetaError
	if asMetaError(err, &tagged) {
		return tagged.TaskIndex(), true
	}
	return 0, false
}

func asMetaError(err error, target *TaskMetaError) bool {
	for err != nil {
		if m, ok := err.(TaskMetaError); ok {
			*target = m
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
