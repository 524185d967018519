package manufacturer

// Registry is an immutable snapshot of company and appearance names.
// It satisfies ports.ManufacturerRegistry and is safe for concurrent reads.
// A nil *Registry behaves as an empty one.
type Registry struct {
	companies   map[uint16]string
	appearances map[uint16]string
}

// NewRegistry copies its inputs into a new snapshot.
func NewRegistry(companies, appearances map[uint16]string) *Registry {
	return &Registry{
		companies:   copyTable(companies),
		appearances: copyTable(appearances),
	}
}

// EmptyRegistry returns a snapshot with no entries.
func EmptyRegistry() *Registry {
	return NewRegistry(nil, nil)
}

// LookupCompany returns the registered name for id.
func (r *Registry) LookupCompany(id uint16) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.companies[id]
	return name, ok
}

// LookupAppearance returns the display name for an appearance code.
func (r *Registry) LookupAppearance(code uint16) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.appearances[code]
	return name, ok
}

// Len returns the number of company entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.companies)
}

// AppearanceCount returns the number of appearance entries.
func (r *Registry) AppearanceCount() int {
	if r == nil {
		return 0
	}
	return len(r.appearances)
}

// Companies returns a copy of the company table.
func (r *Registry) Companies() map[uint16]string {
	if r == nil {
		return map[uint16]string{}
	}
	return copyTable(r.companies)
}
