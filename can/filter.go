package can

// FrameFilter reports whether a frame is wanted. A nil filter matches
// everything.
type FrameFilter func(Frame) bool

// Match reports whether f accepts frame; nil accepts all frames.
func (f FrameFilter) Match(frame Frame) bool {
	return f == nil || f(frame)
}

// ByID matches frames with exactly this identifier.
func ByID(id uint32) FrameFilter {
	return func(f Frame) bool { return f.ID == id }
}

// ByIDs matches frames with any of the identifiers.
func ByIDs(ids ...uint32) FrameFilter {
	m := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return func(f Frame) bool {
		_, ok := m[f.ID]
		return ok
	}
}

// ByMask matches when frame.ID&mask == id&mask, like a controller
// acceptance filter.
func ByMask(id, mask uint32) FrameFilter {
	want := id & mask
	return func(f Frame) bool { return f.ID&mask == want }
}

// StandardOnly matches 11-bit identifiers.
func StandardOnly() FrameFilter {
	return func(f Frame) bool { return !f.Extended }
}

// DataOnly matches frames that are not remote requests.
func DataOnly() FrameFilter {
	return func(f Frame) bool { return !f.RTR }
}

// And matches when every filter matches. Nil filters are skipped.
func And(filters ...FrameFilter) FrameFilter {
	return func(f Frame) bool {
		for _, ff := range filters {
			if ff != nil && !ff(f) {
				return false
			}
		}
		return true
	}
}

// Or matches when any filter matches. Nil filters are skipped; with no
// non-nil filters nothing matches.
func Or(filters ...FrameFilter) FrameFilter {
	return func(f Frame) bool {
		for _, ff := range filters {
			if ff != nil && ff(f) {
				return true
			}
		}
		return false
	}
}
