package listeners

import "sync"

// List is a set of callbacks scoped to its owner. The zero value is ready to use.
type List struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
}

// Add registers fn and returns a function removing it again.
func (l *List) Add(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func())
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

// Notify calls every registered callback. Callbacks may add or remove listeners.
func (l *List) Notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
