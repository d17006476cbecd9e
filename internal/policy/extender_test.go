package policy

import "testing"

func TestExtender_AllowReadExpansion(t *testing.T) {
	reg := NewRegistry()
	if err := Resource("Author").AllowRead().Apply(reg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	reg.Freeze()

	ps, ok := reg.Lookup(ResourceTypeOf("Author"))
	if !ok {
		t.Fatal("expected Author to be registered")
	}

	// allow_read is sugar for AllowAlways on both Get and List
	for _, op := range []Operation{OpGet, OpList} {
		guards := ps.ForOperation(op)
		if len(guards) != 1 {
			t.Fatalf("%s: expected 1 guard, got %d", op, len(guards))
		}
		if guards[0].Name != "allow_always" {
			t.Fatalf("%s: expected allow_always, got %s", op, guards[0].Name)
		}
	}

	// Nothing else is configured
	ops := ps.Operations()
	if len(ops) != 2 {
		t.Fatalf("expected exactly get+list configured, got %v", ops)
	}
}

func TestExtender_NamespacedResource(t *testing.T) {
	reg := NewRegistry()
	rt := ResourceType{Name: "Book", Namespace: "catalog"}
	if err := For(rt).AllowRead().Apply(reg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, ok := reg.Lookup(rt); !ok {
		t.Fatal("namespaced lookup failed")
	}
	if _, ok := reg.Lookup(ResourceTypeOf("Book")); ok {
		t.Fatal("bare name must not collide with namespaced resource")
	}
}

func TestExtender_ApplyPropagatesErrors(t *testing.T) {
	reg := NewRegistry()
	if err := Resource("Book").AllowRead().Apply(reg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := Resource("Book").AllowRead().Apply(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}

	reg.Freeze()
	if err := Resource("Category").AllowRead().Apply(reg); err == nil {
		t.Fatal("expected frozen registry error")
	}
}
