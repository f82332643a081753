package events

// ring is a fixed-capacity emission history; writing past capacity drops
// the oldest entry. Callers hold the notifier lock.
type ring struct {
	buf  []Event
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Event, capacity)}
}

func (r *ring) add(e Event) {
	if len(r.buf) == 0 {
		return
	}
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// snapshot returns up to limit retained events, oldest first;
// limit <= 0 means all retained
func (r *ring) snapshot(limit int) []Event {
	var ordered []Event
	if r.full {
		ordered = make([]Event, 0, len(r.buf))
		ordered = append(ordered, r.buf[r.next:]...)
		ordered = append(ordered, r.buf[:r.next]...)
	} else {
		ordered = make([]Event, r.next)
		copy(ordered, r.buf[:r.next])
	}
	if limit > 0 && limit < len(ordered) {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}
