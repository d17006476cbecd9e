package policy

// Decision is the result of authorizing one (resource, operation) access.
// Denial is an ordinary value, never an error: it is an expected, frequent
// outcome consumed by the execution engine.
type Decision struct {
	Allowed bool
	// Filters must be applied by the execution engine before returning
	// rows to the caller. Conjunctive: a row must satisfy all of them.
	Filters []Filter
	// Reason explains a denial. It is safe to log but should not be
	// surfaced verbatim where it could leak resource existence.
	Reason string
}

// Allow is an unconditional allow decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// AllowWithFilters allows the operation subject to row filters.
func AllowWithFilters(filters []Filter) Decision {
	return Decision{Allowed: true, Filters: filters}
}

// Deny is a deny decision with a reason.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Authorize is the enforcement point, called by the execution engine once
// per resource access per request. candidate carries the pre-fetched
// current record for update/delete checks and is nil otherwise. The call
// performs no I/O and acquires no locks once the registry is frozen.
//
// An absent policy set, like an unconfigured operation, resolves to deny:
// default-deny is the invariant, not an error condition.
func (r *Registry) Authorize(rt ResourceType, op Operation, rctx *RequestContext, candidate map[string]any) Decision {
	ps, ok := r.Lookup(rt)
	if !ok {
		return Deny("no policy configured for " + rt.Key())
	}
	if rctx == nil {
		rctx = Anonymous()
	}
	d := ps.Evaluate(op, rctx, candidate)
	if !d.Allowed && d.Reason == "operation not permitted" {
		d.Reason = "operation not permitted: " + describe(rt, op)
	}
	return d
}
