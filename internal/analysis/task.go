// task.go: async analysis execution with a polling registry
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kirushanth-G/transformer-monitoring/internal/datastore"
)

// TaskStatus is the lifecycle state of an async analysis.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
	TaskCancelled TaskStatus = "CANCELLED"
)

// Task is a handle to an asynchronously running analysis. Done is closed
// when the task reaches a terminal state; Status/Result/Err are then safe
// to read through their accessors at any time.
type Task struct {
	ID        string
	CreatedAt time.Time

	// Done is closed when the task finishes, fails or is cancelled.
	Done <-chan struct{}

	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.RWMutex
	status TaskStatus
	result *datastore.ThermalAnalysis
	err    error
}

// Status returns the current task status.
func (t *Task) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Result returns the persisted analysis and error once the task finished.
// Both are nil/zero while the task is still pending or running.
func (t *Task) Result() (*datastore.ThermalAnalysis, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result, t.err
}

// Cancel requests cancellation. Best-effort: an in-flight vision call is
// interrupted through its context, but a task past the persistence point
// completes normally.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.status == TaskPending || t.status == TaskRunning {
		t.status = TaskCancelled
	}
	t.mu.Unlock()
	t.cancel()
}

func (t *Task) transition(status TaskStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == TaskCancelled {
		return false
	}
	t.status = status
	return true
}

func (t *Task) finish(result *datastore.ThermalAnalysis, err error) {
	t.mu.Lock()
	t.result = result
	t.err = err
	if t.status != TaskCancelled {
		if err != nil {
			t.status = TaskFailed
		} else {
			t.status = TaskCompleted
		}
	}
	t.mu.Unlock()
	close(t.done)
}

// taskRegistry keeps finished and running tasks addressable by id for
// status polling. Entries older than taskRetention are evicted lazily on
// each registration.
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

const taskRetention = time.Hour

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: make(map[string]*Task)}
}

func (r *taskRegistry) add(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, old := range r.tasks {
		select {
		case <-old.Done:
			if time.Since(old.CreatedAt) > taskRetention {
				delete(r.tasks, id)
			}
		default:
		}
	}
	r.tasks[t.ID] = t
}

func (r *taskRegistry) get(id string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	return t, ok
}

// RunAnalysisAsync starts an analysis in the background and returns a task
// handle immediately. The supplied context only scopes submission; the
// running task is cancelled through Task.Cancel, not the caller's context.
func (o *Orchestrator) RunAnalysisAsync(ctx context.Context, req *Request) *Task {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	task := &Task{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Done:      done,
		done:      done,
		cancel:    cancel,
		status:    TaskPending,
	}
	o.tasks.add(task)

	go func() {
		defer cancel()

		select {
		case o.sem <- struct{}{}:
			defer func() { <-o.sem }()
		case <-runCtx.Done():
			task.finish(nil, runCtx.Err())
			return
		}

		if !task.transition(TaskRunning) {
			task.finish(nil, runCtx.Err())
			return
		}

		result, err := o.runAnalysis(runCtx, req)
		task.finish(result, err)
	}()

	return task
}

// GetTask looks up a task by id for status polling.
func (o *Orchestrator) GetTask(id string) (*Task, bool) {
	return o.tasks.get(id)
}
