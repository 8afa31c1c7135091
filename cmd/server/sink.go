package main

import (
	"io"
	"sync"
)

// lateWriter forwards to a writer attached after construction and drops output until then
type lateWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (l *lateWriter) set(w io.Writer) {
	l.mu.Lock()
	l.w = w
	l.mu.Unlock()
}

func (l *lateWriter) Write(p []byte) (int, error) {
	l.mu.RLock()
	w := l.w
	l.mu.RUnlock()

	if w == nil {
		return len(p), nil
	}
	return w.Write(p)
}
