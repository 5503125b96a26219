package interp

import "sync"

// Queue is the external data queue behind PUSH, QUEUE, PULL and QUEUED.
type Queue struct {
	mu    sync.Mutex
	items []string
}

// Push adds a line at the head of the queue.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]string{line}, q.items...)
}

// Append adds a line at the tail of the queue.
func (q *Queue) Append(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, line)
}

// Pull removes the line at the head of the queue.
func (q *Queue) Pull() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	line := q.items[0]
	q.items = q.items[1:]
	return line, true
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
