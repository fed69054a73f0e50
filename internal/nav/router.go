package nav

import "sync"

// Router owns the current location. The controller only reads it and asks
// for changes.
type Router interface {
	Location() string
	Navigate(location string)
}

// History is an in-memory Router keeping the visited locations so the
// terminal browser can go back.
type History struct {
	mu    sync.Mutex
	stack []string
}

// NewHistory creates a history positioned at start.
func NewHistory(start string) *History {
	if start == "" {
		start = HomeLocation
	}
	return &History{stack: []string{start}}
}

// Location returns the current location.
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stack[len(h.stack)-1]
}

// Navigate pushes location.
func (h *History) Navigate(location string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = append(h.stack, location)
}

// Replace swaps the current location without growing the history, as a
// redirect does.
func (h *History) Replace(location string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack[len(h.stack)-1] = location
}

// Back pops the current location. It reports false when there is nothing
// to go back to.
func (h *History) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) < 2 {
		return h.stack[0], false
	}
	h.stack = h.stack[:len(h.stack)-1]
	return h.stack[len(h.stack)-1], true
}

// Len returns the number of locations in the history.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stack)
}
