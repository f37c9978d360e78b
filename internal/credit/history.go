package credit

// History keeps the most recent decisions, up to a fixed capacity.
type History struct {
	entries []Entry
	start   int
	size    int
}

// NewHistory returns a History holding at most capacity entries. A zero capacity keeps nothing.
func NewHistory(capacity int) *History {
	return &History{entries: make([]Entry, capacity)}
}

// Push appends e, evicting the oldest entry when full.
func (h *History) Push(e Entry) {
	capacity := len(h.entries)
	if capacity == 0 {
		return
	}
	if h.size < capacity {
		h.entries[(h.start+h.size)%capacity] = e
		h.size++
		return
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % capacity
}

// Len returns the number of stored entries.
func (h *History) Len() int { return h.size }

// Entries returns the stored entries oldest first. The slice is a copy.
func (h *History) Entries() []Entry {
	out := make([]Entry, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.entries[(h.start+i)%len(h.entries)]
	}
	return out
}
