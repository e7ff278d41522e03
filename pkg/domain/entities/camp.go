package entities

// ReliefCamp represents a demand site and its append-only allocation history
type ReliefCamp struct {
	Name        string             `json:"name"`
	Allocations []AllocationRecord `json:"allocations"`
}

// Append adds records to the camp history
func (c *ReliefCamp) Append(records ...AllocationRecord) {
	c.Allocations = append(c.Allocations, records...)
}

// Clone returns a deep copy of the camp
func (c *ReliefCamp) Clone() *ReliefCamp {
	allocations := make([]AllocationRecord, len(c.Allocations))
	copy(allocations, c.Allocations)
	return &ReliefCamp{
		Name:        c.Name,
		Allocations: allocations,
	}
}

// Snapshot is the full hub and camp state for one allocation cycle.
// Version is maintained by backends that check for concurrent writers
// and is not part of the document.
type Snapshot struct {
	Hubs        []*Hub        `json:"hubs"`
	ReliefCamps []*ReliefCamp `json:"relief_camps"`
	Version     int64         `json:"-"`
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Hubs:        []*Hub{},
		ReliefCamps: []*ReliefCamp{},
	}
}

// FindHub returns the hub with the given name or nil
func (s *Snapshot) FindHub(name string) *Hub {
	for _, hub := range s.Hubs {
		if hub.Name == name {
			return hub
		}
	}
	return nil
}

// FindCamp returns the camp with the given name or nil
func (s *Snapshot) FindCamp(name string) *ReliefCamp {
	for _, camp := range s.ReliefCamps {
		if camp.Name == name {
			return camp
		}
	}
	return nil
}

// Normalize replaces nil collections so the document always carries lists and maps
func (s *Snapshot) Normalize() {
	if s.Hubs == nil {
		s.Hubs = []*Hub{}
	}
	if s.ReliefCamps == nil {
		s.ReliefCamps = []*ReliefCamp{}
	}
	for _, hub := range s.Hubs {
		if hub.Resources == nil {
			hub.Resources = map[Resource]Units{}
		}
	}
	for _, camp := range s.ReliefCamps {
		if camp.Allocations == nil {
			camp.Allocations = []AllocationRecord{}
		}
	}
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		Hubs:        make([]*Hub, 0, len(s.Hubs)),
		ReliefCamps: make([]*ReliefCamp, 0, len(s.ReliefCamps)),
		Version:     s.Version,
	}
	for _, hub := range s.Hubs {
		clone.Hubs = append(clone.Hubs, hub.Clone())
	}
	for _, camp := range s.ReliefCamps {
		clone.ReliefCamps = append(clone.ReliefCamps, camp.Clone())
	}
	return clone
}
