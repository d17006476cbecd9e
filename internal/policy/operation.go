package policy

import "fmt"

// Operation identifies an action performable against a resource type.
// The set is open: callers may grant guards for operations beyond the
// built-in constants, and the engine treats unknown operations like any
// other unconfigured one (denied).
type Operation string

const (
	OpGet       Operation = "get"
	OpList      Operation = "list"
	OpCreate    Operation = "create"
	OpUpdate    Operation = "update"
	OpDelete    Operation = "delete"
	OpSubscribe Operation = "subscribe"
)

func (o Operation) String() string { return string(o) }

// ResourceType uniquely names a domain entity kind exposed through the API.
// The zero Namespace is valid and common.
type ResourceType struct {
	Name      string
	Namespace string
}

// Key returns the registry key for this resource type.
func (rt ResourceType) Key() string {
	if rt.Namespace == "" {
		return rt.Name
	}
	return rt.Namespace + "/" + rt.Name
}

func (rt ResourceType) String() string { return rt.Key() }

// ResourceTypeOf builds a ResourceType from a bare name.
func ResourceTypeOf(name string) ResourceType {
	return ResourceType{Name: name}
}

// describe formats a (resource, operation) pair for deny reasons.
func describe(rt ResourceType, op Operation) string {
	return fmt.Sprintf("%s on %s", op, rt.Key())
}
