package generator

import "github.com/layiku/data-simulator/internal/domain/models"

// history is a fixed-capacity ring of data points. Oldest points fall off
// once the capacity is reached. Not safe for concurrent use; the owning
// generator's lock guards it.
type history struct {
	buf  []models.DataPoint
	head int // index of the oldest point
	size int
}

func newHistory(limit int) *history {
	if limit < 1 {
		limit = 1
	}
	return &history{buf: make([]models.DataPoint, limit)}
}

func (h *history) push(p models.DataPoint) {
	if h.size < len(h.buf) {
		h.buf[(h.head+h.size)%len(h.buf)] = p
		h.size++
		return
	}
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
}

func (h *history) len() int { return h.size }

func (h *history) last() (models.DataPoint, bool) {
	if h.size == 0 {
		return models.DataPoint{}, false
	}
	return h.buf[(h.head+h.size-1)%len(h.buf)], true
}

// snapshot copies up to limit of the newest points in chronological order.
// limit <= 0 means everything.
func (h *history) snapshot(limit int) []models.DataPoint {
	n := h.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.DataPoint, 0, n)
	for i := h.size - n; i < h.size; i++ {
		out = append(out, h.buf[(h.head+i)%len(h.buf)])
	}
	return out
}
