package models

// Session accumulates the assets discovered during one harvesting run,
// keyed by URL in first-discovery order. It has a single owner and is not
// safe for concurrent use.
type Session struct {
	order []string
	byURL map[string]Asset
}

// NewSession creates an empty harvest session
func NewSession() *Session {
	return &Session{byURL: make(map[string]Asset)}
}

// Merge folds one probe result into the session. An asset whose URL is
// already known replaces the stored metadata but keeps its position.
// It returns the number of URLs that were not seen before.
func (s *Session) Merge(candidates []Asset) int {
	added := 0
	for _, a := range candidates {
		if _, ok := s.byURL[a.URL]; !ok {
			s.order = append(s.order, a.URL)
			added++
		}
		s.byURL[a.URL] = a
	}
	return added
}

// Len returns the number of distinct assets
func (s *Session) Len() int {
	return len(s.order)
}

// Snapshot freezes the current contents into a read-only view
func (s *Session) Snapshot() Snapshot {
	assets := make([]Asset, 0, len(s.order))
	for _, u := range s.order {
		assets = append(assets, s.byURL[u])
	}
	return Snapshot{assets: assets}
}

// Snapshot is the immutable result of a finished harvesting loop
type Snapshot struct {
	assets []Asset
}

// NewSnapshot builds a snapshot from already deduplicated assets, such as
// those read back from a manifest.
func NewSnapshot(assets []Asset) Snapshot {
	s := NewSession()
	s.Merge(assets)
	return s.Snapshot()
}

// Len returns the number of assets
func (s Snapshot) Len() int {
	return len(s.assets)
}

// Assets returns a copy of the assets in discovery order
func (s Snapshot) Assets() []Asset {
	out := make([]Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

// At returns the i-th asset in discovery order
func (s Snapshot) At(i int) Asset {
	return s.assets[i]
}

// MarshalJSON writes the snapshot as a JSON array, never null
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.assets == nil {
		return []byte("[]"), nil
	}
	return marshalRaw(s.assets)
}
