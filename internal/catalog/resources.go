package catalog

import "bookstack-backend/internal/policy"

// RegisterPolicies declares the access policies for the catalog resources.
// Called once at startup, before the registry is frozen. Every operation
// not granted here stays on the default-deny path.
func RegisterPolicies(reg *policy.Registry) error {
	// Author: public read-only. Seed data provides rich query examples;
	// mutations require auth.
	if err := policy.Resource("Author").AllowRead().Apply(reg); err != nil {
		return err
	}

	// Publisher: public read-only
	if err := policy.Resource("Publisher").AllowRead().Apply(reg); err != nil {
		return err
	}

	// Book: public read-only
	if err := policy.Resource("Book").AllowRead().Apply(reg); err != nil {
		return err
	}

	// Review: public read-only
	if err := policy.Resource("Review").AllowRead().Apply(reg); err != nil {
		return err
	}

	// Category: public read-only
	if err := policy.Resource("Category").AllowRead().Apply(reg); err != nil {
		return err
	}

	return nil
}
