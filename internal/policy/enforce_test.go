package policy

import (
	"reflect"
	"testing"
)

// countingGuard records how often it was evaluated.
func countingGuard(name string, result GuardResult, count *int) Guard {
	return Custom(name, func(Operation, *RequestContext, map[string]any) GuardResult {
		*count++
		return result
	})
}

func TestAuthorize_DefaultDeny(t *testing.T) {
	reg := NewRegistry()
	if err := Resource("Book").AllowRead().Apply(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	// Unregistered resource: deny every operation
	d := reg.Authorize(ResourceTypeOf("Invoice"), OpGet, Anonymous(), nil)
	if d.Allowed {
		t.Fatal("expected deny for unregistered resource")
	}
	if d.Reason == "" {
		t.Fatal("expected a deny reason")
	}

	// Registered resource, unconfigured operation: deny
	d = reg.Authorize(ResourceTypeOf("Book"), OpCreate, Anonymous(), nil)
	if d.Allowed {
		t.Fatal("expected deny for unconfigured operation")
	}
}

func TestAuthorize_ReadOnlyBook(t *testing.T) {
	reg := NewRegistry()
	if err := Resource("Book").AllowRead().Apply(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	book := ResourceTypeOf("Book")

	if d := reg.Authorize(book, OpGet, Anonymous(), nil); !d.Allowed {
		t.Fatalf("anonymous get should allow, got deny: %s", d.Reason)
	}
	if d := reg.Authorize(book, OpList, Anonymous(), nil); !d.Allowed {
		t.Fatalf("anonymous list should allow, got deny: %s", d.Reason)
	}
	if d := reg.Authorize(book, OpCreate, Anonymous(), nil); d.Allowed {
		t.Fatal("create was never granted and should deny")
	}
	if d := reg.Authorize(book, OpSubscribe, Anonymous(), nil); d.Allowed {
		t.Fatal("subscribe was never granted and should deny")
	}
}

func TestAuthorize_RequireAuthenticatedUpdate(t *testing.T) {
	reg := NewRegistry()
	if err := Resource("Review").
		Grant(OpUpdate, RequireAuthenticated()).
		Apply(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	review := ResourceTypeOf("Review")

	d := reg.Authorize(review, OpUpdate, Anonymous(), nil)
	if d.Allowed {
		t.Fatal("anonymous update should deny")
	}
	if d.Reason != "not authenticated" {
		t.Fatalf("expected reason 'not authenticated', got %q", d.Reason)
	}

	if d := reg.Authorize(review, OpUpdate, &RequestContext{Subject: "u1"}, nil); !d.Allowed {
		t.Fatalf("authenticated update should allow, got deny: %s", d.Reason)
	}
}

func TestAuthorize_OwnerDeleteComposition(t *testing.T) {
	reg := NewRegistry()
	if err := Resource("Review").
		Grant(OpDelete, RequireAuthenticated(), OwnedBy("user_id")).
		Apply(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	review := ResourceTypeOf("Review")
	record := map[string]any{"id": "r1", "user_id": "u1"}

	// Anonymous fails at the first guard
	if d := reg.Authorize(review, OpDelete, Anonymous(), record); d.Allowed {
		t.Fatal("anonymous delete should deny")
	}

	// Authenticated non-owner fails at the second guard
	d := reg.Authorize(review, OpDelete, &RequestContext{Subject: "u2"}, record)
	if d.Allowed {
		t.Fatal("non-owner delete should deny")
	}
	if d.Reason != "not the record owner" {
		t.Fatalf("expected owner failure reason, got %q", d.Reason)
	}

	// Owner passes both guards
	if d := reg.Authorize(review, OpDelete, &RequestContext{Subject: "u1"}, record); !d.Allowed {
		t.Fatalf("owner delete should allow, got deny: %s", d.Reason)
	}
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	var first, second, third int
	ps := NewPolicySet().Grant(OpGet,
		countingGuard("first", Pass(), &first),
		countingGuard("second", Fail("stop here"), &second),
		countingGuard("third", Pass(), &third),
	)

	d := ps.Evaluate(OpGet, Anonymous(), nil)
	if d.Allowed {
		t.Fatal("expected deny")
	}
	if d.Reason != "stop here" {
		t.Fatalf("deny must carry the first failure reason, got %q", d.Reason)
	}
	if first != 1 || second != 1 {
		t.Fatalf("guards before the failure must run once: first=%d second=%d", first, second)
	}
	if third != 0 {
		t.Fatalf("guard after the failure must not run, ran %d times", third)
	}
}

func TestEvaluate_RegistrationOrder(t *testing.T) {
	var order []string
	mark := func(name string) Guard {
		return Custom(name, func(Operation, *RequestContext, map[string]any) GuardResult {
			order = append(order, name)
			return Pass()
		})
	}

	ps := NewPolicySet()
	ps.Grant(OpGet, mark("a"), mark("b"))
	ps.Grant(OpGet, mark("c")) // second grant appends, never replaces

	if d := ps.Evaluate(OpGet, Anonymous(), nil); !d.Allowed {
		t.Fatalf("expected allow, got %s", d.Reason)
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Fatalf("evaluation order must equal registration order, got %v", order)
	}
}

func TestEvaluate_FilterAccumulation(t *testing.T) {
	ps := NewPolicySet().Grant(OpList,
		OwnedBy("user_id"),
		Custom("published_only", func(Operation, *RequestContext, map[string]any) GuardResult {
			return PassWithFilter(Filter{Field: "status", Operator: "eq", Value: "published"})
		}),
	)

	d := ps.Evaluate(OpList, &RequestContext{Subject: "u1"}, nil)
	if !d.Allowed {
		t.Fatalf("expected allow, got %s", d.Reason)
	}
	if len(d.Filters) != 2 {
		t.Fatalf("expected 2 accumulated filters, got %d", len(d.Filters))
	}
	if d.Filters[0].Field != "user_id" || d.Filters[1].Field != "status" {
		t.Fatalf("filters out of order: %+v", d.Filters)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	ps := NewPolicySet().Grant(OpList, RequireAuthenticated(), OwnedBy("user_id"))
	rctx := &RequestContext{Subject: "u1", Roles: []string{"viewer"}}

	first := ps.Evaluate(OpList, rctx, nil)
	second := ps.Evaluate(OpList, rctx, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs must yield the same decision:\n%+v\n%+v", first, second)
	}
}
