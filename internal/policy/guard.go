package policy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// GuardResult is the outcome of evaluating one guard: pass, pass with a
// row-level filter, or fail with a reason.
type GuardResult struct {
	passed bool
	filter *Filter
	reason string
}

// Pass allows the operation unconditionally.
func Pass() GuardResult {
	return GuardResult{passed: true}
}

// PassWithFilter allows the operation but restricts visible rows.
func PassWithFilter(f Filter) GuardResult {
	return GuardResult{passed: true, filter: &f}
}

// Fail denies the operation with a reason.
func Fail(reason string) GuardResult {
	return GuardResult{reason: reason}
}

// Passed reports whether the guard allowed the operation.
func (r GuardResult) Passed() bool { return r.passed }

// Filter returns the attached row filter, or nil.
func (r GuardResult) Filter() *Filter { return r.filter }

// Reason returns the failure reason for a failed result.
func (r GuardResult) Reason() string { return r.reason }

// CheckFunc is the predicate signature for custom guards. It must be pure:
// no I/O, no side effects. Any external state a guard needs (e.g. the
// current record for ownership checks) arrives pre-fetched as candidate.
type CheckFunc func(op Operation, rctx *RequestContext, candidate map[string]any) GuardResult

// Guard is a named, composable authorization rule evaluated per operation
// per request.
type Guard struct {
	Name  string
	check CheckFunc
}

// Check evaluates the guard. A nil request context is treated as anonymous.
func (g Guard) Check(op Operation, rctx *RequestContext, candidate map[string]any) GuardResult {
	if rctx == nil {
		rctx = Anonymous()
	}
	return g.check(op, rctx, candidate)
}

// AllowAlways passes for every caller, including anonymous ones.
func AllowAlways() Guard {
	return Guard{
		Name: "allow_always",
		check: func(Operation, *RequestContext, map[string]any) GuardResult {
			return Pass()
		},
	}
}

// DenyAlways fails for every caller.
func DenyAlways() Guard {
	return Guard{
		Name: "deny_always",
		check: func(Operation, *RequestContext, map[string]any) GuardResult {
			return Fail("denied by policy")
		},
	}
}

// RequireAuthenticated fails when the caller is anonymous.
func RequireAuthenticated() Guard {
	return Guard{
		Name: "require_authenticated",
		check: func(_ Operation, rctx *RequestContext, _ map[string]any) GuardResult {
			if rctx.IsAnonymous() {
				return Fail("not authenticated")
			}
			return Pass()
		},
	}
}

// RequireRole fails unless the caller holds the given role.
func RequireRole(role string) Guard {
	return Guard{
		Name: "require_role:" + role,
		check: func(_ Operation, rctx *RequestContext, _ map[string]any) GuardResult {
			if !rctx.HasRole(role) {
				return Fail(fmt.Sprintf("missing role %q", role))
			}
			return Pass()
		},
	}
}

// OwnedBy restricts access to records whose ownerField equals the caller's
// subject. Without a candidate record (list/get before fetch) it attaches a
// row filter; with one (update/delete) it checks ownership directly.
func OwnedBy(ownerField string) Guard {
	return Guard{
		Name: "owned_by:" + ownerField,
		check: func(_ Operation, rctx *RequestContext, candidate map[string]any) GuardResult {
			if rctx.IsAnonymous() {
				return Fail("not authenticated")
			}
			if candidate == nil {
				return PassWithFilter(Filter{Field: ownerField, Operator: "eq", Value: rctx.Subject})
			}
			if fmt.Sprintf("%v", candidate[ownerField]) != rctx.Subject {
				return Fail("not the record owner")
			}
			return Pass()
		},
	}
}

// Expression compiles an expr-lang boolean predicate into a guard. The
// expression environment exposes subject, roles, claims, record, and
// operation. Compilation happens once, at registration time; a compile
// error aborts registration (fail fast on misconfiguration). Evaluation
// errors fail closed.
func Expression(name, src string) (Guard, error) {
	prog, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return Guard{}, fmt.Errorf("compile guard expression %q: %w", name, err)
	}
	return exprGuard(name, prog), nil
}

// MustExpression is Expression for static declarations; it panics on a
// compile error.
func MustExpression(name, src string) Guard {
	g, err := Expression(name, src)
	if err != nil {
		panic(err)
	}
	return g
}

func exprGuard(name string, prog *vm.Program) Guard {
	return Guard{
		Name: "expr:" + name,
		check: func(op Operation, rctx *RequestContext, candidate map[string]any) GuardResult {
			env := map[string]any{
				"subject":   rctx.Subject,
				"roles":     rctx.Roles,
				"claims":    rctx.Claims,
				"record":    candidate,
				"operation": op.String(),
			}
			result, err := expr.Run(prog, env)
			if err != nil {
				return Fail(fmt.Sprintf("guard %s evaluation error: %v", name, err))
			}
			allowed, ok := result.(bool)
			if !ok || !allowed {
				return Fail(fmt.Sprintf("denied by %s", name))
			}
			return Pass()
		},
	}
}

// Custom wraps an arbitrary pure predicate as a guard.
func Custom(name string, fn CheckFunc) Guard {
	return Guard{Name: name, check: fn}
}
