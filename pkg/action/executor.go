package action

import (
	"runtime/debug"
	"time"
)

// executorLoop consumes the task queue, one task at a time, on its own
// goroutine so a sleeping task never stalls the heartbeat. The velocity
// mutex is never held across a sleep; the only interaction with the
// velocity state machine is through the facade methods.
func (m *Manager) executorLoop() {
	defer close(m.execDone)
	logger.Info("task executor started")

	for m.execRunning.Load() {
		task := m.dequeue()
		if task == nil {
			time.Sleep(executorIdlePoll)
			continue
		}

		logger.Info("task started", "task_id", task.ID, "type", task.Type)
		m.notifyTask(m.snapshotOf(task))
		m.runTask(task)
		m.finishTask(task)
	}

	logger.Info("task executor exited")
}

// dequeue pops the queue head and publishes it as the current task.
func (m *Manager) dequeue() *Task {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()

	if len(m.queue) == 0 {
		return nil
	}
	task := m.queue[0]
	m.queue = m.queue[1:]
	task.Status = StatusRunning
	task.Started = time.Now()
	m.current = task
	return task
}

// runTask dispatches on the task type. Type, Parameters and Duration
// are immutable after creation, so they are read without the task mutex.
func (m *Manager) runTask(task *Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task execution panicked",
				"task_id", task.ID, "panic", r, "stack", string(debug.Stack()))
			m.failTask(task)
		}
	}()

	switch task.Type {
	case TaskMove:
		p := task.Parameters
		m.UpdateTargetVelocity(p["vx"], p["vy"], p["vyaw"], task.Duration)
		time.Sleep(task.Duration)

	case TaskRotate:
		m.UpdateTargetVelocity(0, 0, task.Parameters["vyaw"], task.Duration)
		time.Sleep(task.Duration)

	case TaskStop:
		m.SetIdle()

	default:
		logger.Error("unknown task type", "task_id", task.ID, "type", task.Type)
		m.failTask(task)
	}
}

// failTask marks a still-running task FAILED.
func (m *Manager) failTask(task *Task) {
	m.taskMu.Lock()
	if task.Status == StatusRunning {
		task.Status = StatusFailed
	}
	m.taskMu.Unlock()
}

// finishTask moves a task to the completed ring. A task still RUNNING
// here was not preempted while the executor slept and becomes COMPLETED;
// one already CANCELLED (by ClearTaskQueue or EmergencyStop) keeps its
// status and end time, and is not re-reported.
func (m *Manager) finishTask(task *Task) {
	m.taskMu.Lock()
	transitioned := false
	if task.Status == StatusRunning {
		task.Status = StatusCompleted
		transitioned = true
	}
	if task.Ended.IsZero() {
		task.Ended = time.Now()
		transitioned = true
	}
	m.done[task.ID] = task
	if m.current == task {
		m.current = nil
	}
	m.evictLocked()
	snap := task.snapshot()
	m.taskMu.Unlock()

	if !transitioned {
		return
	}

	m.mc.RecordTaskDone(string(snap.Status), snap.Ended.Sub(snap.Created).Seconds())
	m.notifyTask(snap)

	switch snap.Status {
	case StatusCompleted:
		logger.Info("task completed", "task_id", snap.ID)
	case StatusFailed:
		logger.Error("task failed", "task_id", snap.ID, "type", snap.Type)
	default:
		logger.Info("task finished", "task_id", snap.ID, "status", string(snap.Status))
	}
}

// snapshotOf copies a task under the task mutex.
func (m *Manager) snapshotOf(task *Task) Task {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	return task.snapshot()
}
