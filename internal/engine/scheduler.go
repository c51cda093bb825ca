package engine

import "time"

// task is a cancelable deferred callback. The callback runs with the engine
// mutex held; cancel must be called with the mutex held too, so a canceled
// task can never fire afterwards.
type task struct {
	timer    *time.Timer
	canceled bool
}

func (e *Engine) schedule(d time.Duration, fn func()) *task {
	t := &task{}
	t.timer = time.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if t.canceled {
			return
		}
		fn()
	})
	return t
}

func (t *task) cancel() {
	if t == nil {
		return
	}
	t.canceled = true
	t.timer.Stop()
}
