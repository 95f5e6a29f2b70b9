package spark

// historyLimit bounds the per-category session history. Older draws fall off
// the front. recencyWindow is the smaller slice of it excluded from new
// draws; the rest exists only for backward navigation.
const (
	historyLimit  = 20
	recencyWindow = 10
)

// History is the bounded queue of spark ids a session has already seen for
// one category. It lives in the cookie session, so it must stay small and
// serialize cleanly.
type History struct {
	IDs []uint `json:"ids"`
}

// Push appends a drawn spark, evicting the oldest beyond the limit. Repeated
// pushes of the current head are collapsed so polling does not flood the
// queue.
func (h *History) Push(id uint) {
	if n := len(h.IDs); n > 0 && h.IDs[n-1] == id {
		return
	}
	h.IDs = append(h.IDs, id)
	if len(h.IDs) > historyLimit {
		h.IDs = h.IDs[len(h.IDs)-historyLimit:]
	}
}

// Last returns the most recently drawn id, or 0 when empty.
func (h *History) Last() uint {
	if len(h.IDs) == 0 {
		return 0
	}
	return h.IDs[len(h.IDs)-1]
}

// Previous pops the current card and returns the one before it, or 0 when
// there is nothing to go back to.
func (h *History) Previous() uint {
	if len(h.IDs) < 2 {
		return 0
	}
	h.IDs = h.IDs[:len(h.IDs)-1]
	return h.IDs[len(h.IDs)-1]
}

// Recent returns the ids to exclude from the next draw, the last
// recencyWindow shown.
func (h *History) Recent() []uint {
	if len(h.IDs) <= recencyWindow {
		return h.IDs
	}
	return h.IDs[len(h.IDs)-recencyWindow:]
}
