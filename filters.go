package gpudriven

import "sync"

// FilterOp is the boolean combinator of one filter entry.
type FilterOp uint32

const (
	FilterOpAnd FilterOp = iota
	FilterOpOr
)

// FilterEntry classifies materials for GPU-driven dispatch. An entry
// matches a material when its render queue falls in [QueueMin,QueueMax]
// (a zero range matches every queue), its shader tag equals TagValue
// (when TagKey is set) and Keyword is enabled on the material (when
// set). Flags names the bits the entry contributes to the result.
type FilterEntry struct {
	Op       FilterOp
	QueueMin int32
	QueueMax int32
	TagKey   string
	TagValue string
	Flags    uint32
	Keyword  string
}

// malformed entries are inert; filters are classification data, not
// safety-critical state, so a bad record must never take the dispatch
// down.
func (e FilterEntry) malformed() bool {
	if e.Op != FilterOpAnd && e.Op != FilterOpOr {
		return true
	}
	if e.QueueMin > e.QueueMax {
		return true
	}
	return false
}

func (e FilterEntry) matches(mat *MaterialAsset) bool {
	if e.QueueMin != 0 || e.QueueMax != 0 {
		q := mat.RenderQueue()
		if q < e.QueueMin || q > e.QueueMax {
			return false
		}
	}
	if e.TagKey != "" {
		v, ok := mat.ShaderTag(e.TagKey)
		if !ok || v != e.TagValue {
			return false
		}
	}
	if e.Keyword != "" && !mat.HasKeyword(e.Keyword) {
		return false
	}
	return true
}

// FilterRegistry holds the ordered material filter list. Evaluation is
// strictly left to right over the list: an OR entry sets its flag bits
// when the material matches, an AND entry clears its flag bits when the
// material does not match. Mutation during an in-flight dispatch is a
// caller synchronization obligation; the registry's own mutex only
// keeps individual operations coherent.
type FilterRegistry struct {
	log     Logger
	mu      sync.Mutex
	entries []FilterEntry
}

func NewFilterRegistry(log Logger) *FilterRegistry {
	return &FilterRegistry{log: orNopLogger(log)}
}

// AddFilters appends entries, preserving order.
func (r *FilterRegistry) AddFilters(entries []FilterEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if e.malformed() {
			r.log.Debugf("ignoring malformed material filter entry: op=%d queue=[%d,%d]", e.Op, e.QueueMin, e.QueueMax)
		}
		r.entries = append(r.entries, e)
	}
}

func (r *FilterRegistry) ClearFilters() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

func (r *FilterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// FilterFlags evaluates every entry against the material in list order
// and returns the combined bitmask. Pure with respect to (entries,
// material): two calls with no mutation in between yield the same mask.
func (r *FilterRegistry) FilterFlags(mat *MaterialAsset) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mask uint32
	for _, e := range r.entries {
		if e.malformed() {
			continue
		}
		matched := e.matches(mat)
		switch e.Op {
		case FilterOpOr:
			if matched {
				mask |= e.Flags
			}
		case FilterOpAnd:
			if !matched {
				mask &^= e.Flags
			}
		}
	}
	return mask
}
