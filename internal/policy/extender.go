package policy

// Extender is the declarative registration surface used by resource
// definition sites at startup. It only translates grants into a registry
// entry; it makes no runtime decisions.
//
//	err := policy.Resource("Book").
//		AllowRead().
//		Grant(policy.OpUpdate, policy.RequireAuthenticated()).
//		Apply(reg)
type Extender struct {
	rt ResourceType
	ps *PolicySet
}

// Resource starts a declaration for a resource type with no namespace.
func Resource(name string) *Extender {
	return For(ResourceType{Name: name})
}

// For starts a declaration for an explicit resource type.
func For(rt ResourceType) *Extender {
	return &Extender{rt: rt, ps: NewPolicySet()}
}

// Grant registers guards for one operation, in order.
func (e *Extender) Grant(op Operation, guards ...Guard) *Extender {
	e.ps.Grant(op, guards...)
	return e
}

// AllowRead grants unrestricted Get and List access. Shorthand for
// Grant(OpGet, AllowAlways()) and Grant(OpList, AllowAlways()).
func (e *Extender) AllowRead() *Extender {
	e.ps.Grant(OpGet, AllowAlways())
	e.ps.Grant(OpList, AllowAlways())
	return e
}

// Apply registers the accumulated policy set. Operations never granted
// stay unconfigured and are denied by default.
func (e *Extender) Apply(reg *Registry) error {
	return reg.Register(e.rt, e.ps)
}
