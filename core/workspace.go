package core

// Workspace pairs a store with the mapper that drives it. A workspace lives
// exactly as long as the UI session that owns it.
type Workspace struct {
	Store  *Store
	Mapper *Mapper
}

// NewWorkspace constructs a seeded store and its mapper.
func NewWorkspace(deps StoreDeps) *Workspace {
	store := NewStore(deps)
	return &Workspace{Store: store, Mapper: NewMapper(store)}
}
