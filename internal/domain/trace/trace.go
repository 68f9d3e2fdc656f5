package trace

import "time"

// Mode is the branch the resolver took to produce a response.
type Mode string

const (
	ModeUnmatched  Mode = "unmatched"
	ModeSequential Mode = "sequential"
	ModeRule       Mode = "rule"
	ModeDefault    Mode = "default"
)

// Entry is the outcome of resolving a single request.
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Query        string            `json:"query,omitempty"`
	Body         string            `json:"body,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Matched      bool              `json:"matched"`
	DefinitionID string            `json:"definition_id,omitempty"`
	Description  string            `json:"description,omitempty"`
	CollectionID string            `json:"collection_id,omitempty"`
	Tier         string            `json:"tier,omitempty"`
	Mode         Mode              `json:"mode"`
	StepIndex    *int              `json:"step_index,omitempty"`
	RulePriority *int              `json:"rule_priority,omitempty"`
	RuleField    string            `json:"rule_field,omitempty"`
	Status       int               `json:"status"`
	ElapsedMs    int64             `json:"elapsed_ms"`
}
