package policy

// RequestContext carries the authenticated caller's identity and request
// metadata into guard evaluation. It is built by the transport layer once
// per request and is never mutated or retained by the engine.
type RequestContext struct {
	// Subject is the caller's identity. Empty means anonymous.
	Subject string
	// Roles granted to the caller.
	Roles []string
	// Claims holds additional token claims for custom guards.
	Claims map[string]any
	// Fields lists the fields the request asked for, when the transport
	// parsed a field selection. Informational; guards may inspect it.
	Fields []string
	// Args holds the request's filter arguments, when present.
	Args map[string]any
}

// Anonymous returns an unauthenticated RequestContext.
func Anonymous() *RequestContext {
	return &RequestContext{}
}

// IsAnonymous reports whether the context has no authenticated subject.
func (c *RequestContext) IsAnonymous() bool {
	return c == nil || c.Subject == ""
}

// HasRole checks whether the caller holds the given role.
func (c *RequestContext) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks whether the caller holds the admin role.
func (c *RequestContext) IsAdmin() bool {
	return c.HasRole("admin")
}
