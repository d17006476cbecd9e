package policy

import (
	"errors"
	"sync"
	"testing"
)

func TestRegister_Duplicate(t *testing.T) {
	reg := NewRegistry()
	rt := ResourceTypeOf("Book")

	if err := reg.Register(rt, NewPolicySet().Grant(OpGet, AllowAlways())); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := reg.Register(rt, NewPolicySet())
	if err == nil {
		t.Fatal("expected DuplicateResourceError")
	}
	var dup *DuplicateResourceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateResourceError, got %T", err)
	}
	if dup.Resource != rt {
		t.Fatalf("error names wrong resource: %s", dup.Resource)
	}
}

func TestRegister_AfterFreeze(t *testing.T) {
	reg := NewRegistry()
	reg.Freeze()

	err := reg.Register(ResourceTypeOf("Book"), NewPolicySet())
	if err == nil {
		t.Fatal("expected RegistryFrozenError")
	}
	var frozen *RegistryFrozenError
	if !errors.As(err, &frozen) {
		t.Fatalf("expected RegistryFrozenError, got %T", err)
	}
	if !reg.Frozen() {
		t.Fatal("registry should report frozen")
	}
}

func TestLookup_AbsentResource(t *testing.T) {
	reg := NewRegistry()
	reg.Freeze()

	if _, ok := reg.Lookup(ResourceTypeOf("Ghost")); ok {
		t.Fatal("expected no policy set for unregistered resource")
	}
}

func TestResourceTypeKey(t *testing.T) {
	if got := ResourceTypeOf("Book").Key(); got != "Book" {
		t.Fatalf("bare key: got %q", got)
	}
	rt := ResourceType{Name: "Book", Namespace: "catalog"}
	if got := rt.Key(); got != "catalog/Book" {
		t.Fatalf("namespaced key: got %q", got)
	}
}

func TestResources_Sorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"Review", "Author", "Book"} {
		if err := Resource(name).AllowRead().Apply(reg); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	reg.Freeze()

	got := reg.Resources()
	want := []string{"Author", "Book", "Review"}
	if len(got) != len(want) {
		t.Fatalf("expected %d resources, got %d", len(want), len(got))
	}
	for i, rt := range got {
		if rt.Name != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, rt.Name, want[i])
		}
	}
}

func TestAuthorize_ConcurrentReads(t *testing.T) {
	reg := NewRegistry()
	if err := Resource("Book").AllowRead().Apply(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Resource("Review").
		Grant(OpUpdate, RequireAuthenticated()).
		Apply(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	book := ResourceTypeOf("Book")
	review := ResourceTypeOf("Review")

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if d := reg.Authorize(book, OpGet, Anonymous(), nil); !d.Allowed {
					t.Errorf("Book get should allow: %s", d.Reason)
					return
				}
				if d := reg.Authorize(book, OpCreate, Anonymous(), nil); d.Allowed {
					t.Error("Book create should deny")
					return
				}
				if d := reg.Authorize(review, OpUpdate, &RequestContext{Subject: "u1"}, nil); !d.Allowed {
					t.Errorf("Review update should allow authenticated: %s", d.Reason)
					return
				}
			}
		}()
	}
	wg.Wait()
}
