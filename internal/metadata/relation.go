package metadata

// Relation describes a link between two entities. The engine supports
// one_to_many (source has many targets via TargetKey) and one_to_one.
type Relation struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // one_to_one, one_to_many
	Source    string `json:"source"`
	Target    string `json:"target"`
	SourceKey string `json:"source_key"`
	TargetKey string `json:"target_key"`
}

func (r *Relation) IsOneToMany() bool {
	return r.Type == "one_to_many"
}

func (r *Relation) IsOneToOne() bool {
	return r.Type == "one_to_one"
}
