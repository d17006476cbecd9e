package audit

import "context"

const (
	// KindDecision marks an authorization decision, allowed or denied.
	KindDecision = "decision"
	// KindMutation marks a successful write to a catalog record.
	KindMutation = "mutation"
)

// Event is one audit log entry.
type Event struct {
	ID        string         `json:"id,omitempty"`
	Kind      string         `json:"kind"`
	Resource  string         `json:"resource,omitempty"`
	Operation string         `json:"operation,omitempty"`
	RecordID  string         `json:"record_id,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Allowed   bool           `json:"allowed"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Recorder receives audit events. Record must never block the request path.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Noop discards all events. Used when auditing is disabled.
type Noop struct{}

func (Noop) Record(ctx context.Context, event Event) {}
