package structgraph

// MarkerOption marker option
type MarkerOption func(m *Marker)

// MarkerOptions represents marker option
type MarkerOptions []MarkerOption

// Apply applies options
func (o MarkerOptions) Apply(m *Marker) {
	if len(o) == 0 {
		return
	}
	for _, opt := range o {
		opt(m)
	}
}

// WithIndex field name to index mapping
func WithIndex(index map[string]int) MarkerOption {
	return func(m *Marker) {
		m.index = index
	}
}

// WithNoStrict tolerates marker fields without corresponding struct field
func WithNoStrict() MarkerOption {
	return func(m *Marker) {
		m.noStrict = true
	}
}
