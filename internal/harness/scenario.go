package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/querycypher"
)

// Scenario is a sequence of client calls plus assertions on the
// statements they produced.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// GraphOnly runs the client without a relational store.
	GraphOnly bool `yaml:"graph_only,omitempty"`

	// Labels keeps "_label" in find results.
	Labels bool `yaml:"labels,omitempty"`

	// Steps run in order. A failing step does not stop the run.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after every step ran.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one client call.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Graph is the node to save or to delete relationships from.
	Graph map[string]any `yaml:"graph,omitempty"`

	// NoUpdate saves without writing properties of existing nodes.
	NoUpdate bool `yaml:"no_update,omitempty"`

	// Label and UUIDs select nodes for find_by_id and delete_by_id.
	// find_by_id uses the first uuid.
	Label string   `yaml:"label,omitempty"`
	UUIDs []string `yaml:"uuids,omitempty"`

	// Query drives find, spatial and delete_by_query.
	Query *querycypher.Query `yaml:"query,omitempty"`

	// Spatial is the geometry search of a spatial step.
	Spatial *SpatialStep `yaml:"spatial,omitempty"`

	// Records answer every graph statement of this step.
	Records []map[string]any `yaml:"records,omitempty"`

	// ExpectError is the validation code the step must fail with.
	ExpectError ir.ErrorCode `yaml:"expect_error,omitempty"`
}

// SpatialStep is the YAML form of a spatial search.
type SpatialStep struct {
	Nodes    []string       `yaml:"nodes,omitempty"`
	Op       string         `yaml:"op"`
	Geometry map[string]any `yaml:"geometry"`
	Distance float64        `yaml:"distance,omitempty"`
}

// Step ops.
const (
	OpSave                = "save"
	OpFind                = "find"
	OpFindByID            = "find_by_id"
	OpSpatial             = "spatial"
	OpDeleteByID          = "delete_by_id"
	OpDeleteByQuery       = "delete_by_query"
	OpDeleteRelationships = "delete_relationships"
)

// Assertion checks the trace of one step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Step is the index of the step checked.
	Step int `yaml:"step"`

	// Store is "graph" (default) or "relational".
	Store string `yaml:"store,omitempty"`

	// Text must be a substring of one statement (statement_contains).
	Text string `yaml:"text,omitempty"`

	// Count is the exact number of statements (statement_count).
	Count int `yaml:"count,omitempty"`

	// Code is the expected validation code (error_code).
	Code ir.ErrorCode `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertStatementContains = "statement_contains"
	AssertStatementCount    = "statement_count"
	AssertErrorCode         = "error_code"
)

// Assertion stores.
const (
	StoreGraph      = "graph"
	StoreRelational = "relational"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpSave, OpDeleteRelationships:
		if st.Graph == nil {
			return fmt.Errorf("steps[%d]: graph is required for %s", index, st.Op)
		}
	case OpFind, OpDeleteByQuery:
		if st.Query == nil {
			return fmt.Errorf("steps[%d]: query is required for %s", index, st.Op)
		}
	case OpSpatial:
		if st.Query == nil || st.Spatial == nil {
			return fmt.Errorf("steps[%d]: query and spatial are required for spatial", index)
		}
	case OpFindByID, OpDeleteByID:
		if st.Label == "" {
			return fmt.Errorf("steps[%d]: label is required for %s", index, st.Op)
		}
		if len(st.UUIDs) == 0 {
			return fmt.Errorf("steps[%d]: uuids is required for %s", index, st.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step < 0 || a.Step >= steps {
		return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
	}
	switch a.Store {
	case "", StoreGraph, StoreRelational:
	default:
		return fmt.Errorf("assertions[%d]: unknown store %q", index, a.Store)
	}

	switch a.Type {
	case AssertStatementContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for statement_contains", index)
		}
	case AssertStatementCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for statement_count", index)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
