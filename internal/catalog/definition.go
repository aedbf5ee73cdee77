// Package catalog holds the ordered stage definitions for the clarification
// workflow and computes transitions between them.
package catalog

// Stage ids used by the built-in catalog. The terminal sentinel is not a
// stage: reaching it marks the workflow complete.
const (
	StageStart          = "start"
	StageClarifyIntent  = "clarify_intent"
	StageNotBuilder     = "not_builder"
	StageMVPScoper      = "mvp_scoper"
	StageStackSelector  = "stack_selector"
	StageReasoner       = "reasoner"
	StageFileMapBuilder = "file_map_builder"
	StageTaskPlanner    = "task_planner"
	StageExporter       = "exporter"

	TerminalSentinel = "complete"
)

// Validation rule type names accepted in clarity_rules.
const (
	RuleMinWords         = "min_words"
	RuleMinFeatures      = "min_features"
	RuleMinExclusions    = "min_exclusions"
	RuleRequiredEntities = "required_entities"
	RuleTechCompleteness = "tech_completeness"
	RuleApproval         = "approval"
	RuleSpecificity      = "specificity_score"
)

// Rule is one validation rule attached to a stage.
type Rule struct {
	Type       string   `yaml:"type"`
	Threshold  float64  `yaml:"threshold"`
	Entities   []string `yaml:"entities"`
	Categories []string `yaml:"required_categories"`
	Message    string   `yaml:"message"`
	Prompt     string   `yaml:"prompt"`
}

// StageDefinition describes one stage of the wizard. Immutable after load.
type StageDefinition struct {
	ID        string `yaml:"-"`
	Label     string `yaml:"label"`
	Purpose   string `yaml:"purpose"`
	Optional  bool   `yaml:"optional"`
	Retry     bool   `yaml:"retry"`
	Skip      bool   `yaml:"skip"`
	WebSearch bool   `yaml:"web_search"`
	Rules     []Rule `yaml:"clarity_rules"`

	// Next is the static default transition. Empty or the terminal sentinel
	// both mean "workflow ends after this stage".
	Next string `yaml:"next"`
}

// Terminal reports whether the stage's static transition ends the workflow.
func (d *StageDefinition) Terminal() bool {
	return d.Next == "" || d.Next == TerminalSentinel
}

// workflowSection is the workflow-level block of the catalog YAML.
type workflowSection struct {
	StartStage string `yaml:"start_stage"`
}

// catalogFile is the top-level shape of the catalog YAML.
type catalogFile struct {
	Workflow workflowSection             `yaml:"workflow"`
	Stages   map[string]*StageDefinition `yaml:"stages"`
}
