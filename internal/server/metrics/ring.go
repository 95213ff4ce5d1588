package metrics

// DefaultRingCapacity keeps seven days of hourly snapshots.
const DefaultRingCapacity = 168

// ring is a fixed-capacity FIFO of snapshots; pushing onto a full ring
// evicts the oldest entry. Not safe for concurrent use on its own.
type ring struct {
	buf   []Snapshot
	start int
	size  int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &ring{buf: make([]Snapshot, capacity)}
}

func (r *ring) push(s Snapshot) {
	c := len(r.buf)
	if r.size < c {
		r.buf[(r.start+r.size)%c] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % c
}

// at returns the i-th entry counting from the oldest.
func (r *ring) at(i int) Snapshot {
	return r.buf[(r.start+i)%len(r.buf)]
}

func (r *ring) len() int { return r.size }

func (r *ring) reset() {
	r.buf = make([]Snapshot, len(r.buf))
	r.start, r.size = 0, 0
}
