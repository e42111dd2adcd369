package action

import (
	"fmt"
	"time"
)

// AddTask appends a task to the queue and returns its id. Ids are
// "task_N" with a monotonic per-process counter.
func (m *Manager) AddTask(taskType string, parameters map[string]float64, duration time.Duration) string {
	params := make(map[string]float64, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}

	m.taskMu.Lock()
	id := fmt.Sprintf("task_%d", m.nextID)
	m.nextID++

	task := &Task{
		ID:         id,
		Type:       taskType,
		Parameters: params,
		Duration:   duration,
		Status:     StatusPending,
		Created:    time.Now(),
	}
	m.queue = append(m.queue, task)
	queueLen := len(m.queue)
	snap := task.snapshot()
	m.taskMu.Unlock()

	m.mc.RecordEnqueue()
	m.notifyTask(snap)
	logger.Info("task queued", "task_id", id, "type", taskType, "queue_len", queueLen)
	return id
}

// ClearTaskQueue cancels every pending task plus the currently running
// one and moves them to the completed ring. Returns the number of
// pending tasks cancelled.
func (m *Manager) ClearTaskQueue() int {
	now := time.Now()
	var snaps []Task

	m.taskMu.Lock()
	cancelled := 0
	for _, task := range m.queue {
		task.Status = StatusCancelled
		task.Ended = now
		m.done[task.ID] = task
		snaps = append(snaps, task.snapshot())
		cancelled++
	}
	m.queue = nil

	if m.current != nil {
		m.current.Status = StatusCancelled
		m.current.Ended = now
		m.done[m.current.ID] = m.current
		snaps = append(snaps, m.current.snapshot())
		m.current = nil
		logger.Info("running task cancelled")
	}
	m.evictLocked()
	m.taskMu.Unlock()

	for _, snap := range snaps {
		m.mc.RecordTaskDone(string(snap.Status), snap.Ended.Sub(snap.Created).Seconds())
		m.notifyTask(snap)
	}
	logger.Info("task queue cleared", "cancelled_pending", cancelled)
	return cancelled
}

// TaskStatus looks a task up by id: the queue first, then the current
// task, then the completed ring. The second return is false when the
// task is unknown or already evicted.
func (m *Manager) TaskStatus(id string) (Task, bool) {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()

	for _, task := range m.queue {
		if task.ID == id {
			return task.snapshot(), true
		}
	}
	if m.current != nil && m.current.ID == id {
		return m.current.snapshot(), true
	}
	if task, ok := m.done[id]; ok {
		return task.snapshot(), true
	}
	return Task{}, false
}

// QueueLength returns the number of pending tasks.
func (m *Manager) QueueLength() int {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	return len(m.queue)
}

// evictLocked trims the completed ring to its bound, dropping the
// oldest entries by creation time. Caller holds taskMu.
func (m *Manager) evictLocked() {
	for len(m.done) > m.historySize {
		oldestID := ""
		var oldest time.Time
		for id, task := range m.done {
			if oldestID == "" || task.Created.Before(oldest) {
				oldestID = id
				oldest = task.Created
			}
		}
		delete(m.done, oldestID)
	}
}
