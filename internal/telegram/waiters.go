package telegram

import (
	"fmt"
	"sync"

	"bfban-bot/internal/report"
)

// waiterRegistry routes inbound messages to whatever report flow is currently
// waiting for input from that (origin, sender) pair. Waiters queue up FIFO so
// two flows by the same user never steal each other's whole conversation.
type waiterRegistry struct {
	mu      sync.Mutex
	waiting map[string][]chan report.Message
}

func newWaiterRegistry() *waiterRegistry {
	return &waiterRegistry{waiting: make(map[string][]chan report.Message)}
}

func waiterKey(origin, sender int64) string {
	return fmt.Sprintf("%d:%d", origin, sender)
}

func (w *waiterRegistry) register(key string) chan report.Message {
	ch := make(chan report.Message, 1)
	w.mu.Lock()
	w.waiting[key] = append(w.waiting[key], ch)
	w.mu.Unlock()
	return ch
}

func (w *waiterRegistry) unregister(key string, ch chan report.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	list := w.waiting[key]
	for i, c := range list {
		if c == ch {
			w.waiting[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(w.waiting[key]) == 0 {
		delete(w.waiting, key)
	}
}

// deliver hands the message to the oldest waiter. False means nobody is
// waiting and the message is not ours to consume.
func (w *waiterRegistry) deliver(key string, msg report.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	list := w.waiting[key]
	if len(list) == 0 {
		return false
	}
	ch := list[0]
	w.waiting[key] = list[1:]
	if len(w.waiting[key]) == 0 {
		delete(w.waiting, key)
	}
	ch <- msg
	return true
}

func (w *waiterRegistry) hasWaiter(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiting[key]) > 0
}
