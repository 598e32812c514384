package helpers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Timer records nested phase timings. A nil timer records nothing, so callers
// can pass one around unconditionally.
type Timer struct {
	data  []timerData
	mutex sync.Mutex
}

type timerData struct {
	time  time.Time
	name  string
	isEnd bool
}

func (t *Timer) Begin(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{name: name, time: time.Now()})
	}
}

func (t *Timer) End(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{name: name, time: time.Now(), isEnd: true})
	}
}

// Log emits one debug entry per completed phase, with its nesting depth.
func (t *Timer) Log(log *zap.Logger) {
	if t == nil || log == nil {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	var stack []timerData
	for _, item := range t.data {
		if !item.isEnd {
			stack = append(stack, item)
			continue
		}
		last := len(stack) - 1
		top := stack[last]
		stack = stack[:last]
		if item.name != top.name {
			panic("Internal error")
		}
		log.Debug("phase finished",
			zap.String("phase", top.name),
			zap.Int("depth", len(stack)),
			zap.Duration("elapsed", item.time.Sub(top.time)))
	}
}
