// Package project defines the Record accumulated across clarification stages
// and its one-JSON-file-per-project store.
package project

// Task is one planned development task.
type Task struct {
	Title    string `json:"title"`
	File     string `json:"file"`
	Estimate string `json:"estimate"`
	Priority int    `json:"priority"`
}

// Record accumulates everything learned about a project during clarification.
// Name is immutable after construction and doubles as the on-disk key.
// Mutation happens exclusively through stage handlers; the model itself
// enforces no uniqueness on list fields.
type Record struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Purpose          string            `json:"purpose"`
	Goals            []string          `json:"goals"`
	MVPFeatures      []string          `json:"mvpFeatures"`
	ExcludedFeatures []string          `json:"excludedFeatures"`
	Constraints      []string          `json:"constraints"`
	TargetUser       string            `json:"targetUser"`
	TechStack        []string          `json:"techStack"`
	Decisions        map[string]string `json:"decisions"`
	FileMap          map[string]string `json:"fileMap"`
	Tasks            []Task            `json:"tasks"`
}

// NewRecord creates an empty record for the given project name.
func NewRecord(name string) *Record {
	return &Record{
		Name:      name,
		Decisions: make(map[string]string),
		FileMap:   make(map[string]string),
	}
}

// Clone returns a deep copy. The engine applies handler mutations to a clone
// and commits it only when the handler succeeds, keeping Submit all-or-nothing.
func (r *Record) Clone() *Record {
	c := *r
	c.Goals = append([]string(nil), r.Goals...)
	c.MVPFeatures = append([]string(nil), r.MVPFeatures...)
	c.ExcludedFeatures = append([]string(nil), r.ExcludedFeatures...)
	c.Constraints = append([]string(nil), r.Constraints...)
	c.TechStack = append([]string(nil), r.TechStack...)
	c.Tasks = append([]Task(nil), r.Tasks...)
	c.Decisions = make(map[string]string, len(r.Decisions))
	for k, v := range r.Decisions {
		c.Decisions[k] = v
	}
	c.FileMap = make(map[string]string, len(r.FileMap))
	for k, v := range r.FileMap {
		c.FileMap[k] = v
	}
	return &c
}

// normalize ensures maps are non-nil after a JSON load of an older snapshot.
func (r *Record) normalize() {
	if r.Decisions == nil {
		r.Decisions = make(map[string]string)
	}
	if r.FileMap == nil {
		r.FileMap = make(map[string]string)
	}
}
