package audit

// Policy decides whether a developer may write to the audit trail.
// The authorized set is fixed at construction; evaluation is a pure
// membership check with no I/O.
type Policy struct {
	authorized map[string]struct{}
}

// NewPolicy builds a policy from the authorized developer IDs.
func NewPolicy(developerIDs []string) *Policy {
	p := &Policy{authorized: make(map[string]struct{}, len(developerIDs))}
	for _, id := range developerIDs {
		if id != "" {
			p.authorized[id] = struct{}{}
		}
	}
	return p
}

// Allows reports whether developerID is in the authorized set.
func (p *Policy) Allows(developerID string) bool {
	_, ok := p.authorized[developerID]
	return ok
}
