package policy

import "sort"

// PolicySet is the complete per-operation guard configuration for one
// resource type. Guards within an operation run in registration order and
// AND-compose: all must pass, and the first failure short-circuits.
// Operations with no guards are implicitly denied by the enforcement point.
type PolicySet struct {
	guards map[Operation][]Guard
}

// NewPolicySet creates an empty PolicySet.
func NewPolicySet() *PolicySet {
	return &PolicySet{guards: make(map[Operation][]Guard)}
}

// Grant appends guards for an operation. Granting the same operation again
// appends to the existing sequence (AND-merge), never replaces it.
func (ps *PolicySet) Grant(op Operation, guards ...Guard) *PolicySet {
	ps.guards[op] = append(ps.guards[op], guards...)
	return ps
}

// ForOperation returns the guards registered for an operation, in
// registration order. The empty slice means the operation is unconfigured.
func (ps *PolicySet) ForOperation(op Operation) []Guard {
	return ps.guards[op]
}

// Operations returns the configured operations in sorted order, for
// deterministic introspection output.
func (ps *PolicySet) Operations() []Operation {
	ops := make([]Operation, 0, len(ps.guards))
	for op := range ps.guards {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Evaluate runs the guards for one operation against a request context and
// an optional pre-fetched candidate record. Filters from passing guards
// accumulate conjunctively.
func (ps *PolicySet) Evaluate(op Operation, rctx *RequestContext, candidate map[string]any) Decision {
	guards := ps.ForOperation(op)
	if len(guards) == 0 {
		return Deny("operation not permitted")
	}

	var filters []Filter
	for _, g := range guards {
		result := g.Check(op, rctx, candidate)
		if !result.Passed() {
			return Deny(result.Reason())
		}
		if f := result.Filter(); f != nil {
			filters = append(filters, *f)
		}
	}

	if len(filters) > 0 {
		return AllowWithFilters(filters)
	}
	return Allow()
}
