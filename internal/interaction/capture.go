package interaction

// CaptureMap records which pairs are currently inside an interaction's
// attractive or bonded shell.
type CaptureMap struct {
	pairs map[PairKey]struct{}
}

// NewCaptureMap returns an empty map.
func NewCaptureMap() *CaptureMap {
	return &CaptureMap{pairs: make(map[PairKey]struct{})}
}

// Add marks (a, b) captured.
func (m *CaptureMap) Add(a, b int) { m.pairs[MakePairKey(a, b)] = struct{}{} }

// Remove releases (a, b).
func (m *CaptureMap) Remove(a, b int) { delete(m.pairs, MakePairKey(a, b)) }

// Captured reports whether (a, b) is captured.
func (m *CaptureMap) Captured(a, b int) bool {
	_, ok := m.pairs[MakePairKey(a, b)]
	return ok
}

// Len returns the number of captured pairs.
func (m *CaptureMap) Len() int { return len(m.pairs) }

// Clear releases every pair.
func (m *CaptureMap) Clear() { m.pairs = make(map[PairKey]struct{}) }

// Pairs returns the captured pairs in ascending order.
func (m *CaptureMap) Pairs() []PairKey {
	out := make([]PairKey, 0, len(m.pairs))
	for k := range m.pairs {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}
