// Package harness runs scenario files against a Client wired to in-memory
// stores and checks the statements it sends.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: save_person_with_home
//	description: "A new person and place are created and linked"
//	steps:
//	  - op: save
//	    graph:
//	      _label: Person
//	      name: Ada
//	      home: { _label: Place, name: Office }
//	  - op: delete_by_id
//	    label: Person
//	    uuids: ["00000000-0000-4000-8000-000000000001"]
//	    records:
//	      - { uuid: "00000000-0000-4000-8000-000000000001" }
//	assertions:
//	  - type: statement_contains
//	    step: 0
//	    text: "CREATE (vaa:Person:Geograph $vaa)"
//	  - type: statement_count
//	    step: 1
//	    store: relational
//	    count: 1
//
// Step ops are save, find, find_by_id, spatial, delete_by_id,
// delete_by_query and delete_relationships. "records" is what the graph
// store answers for that step's statements.
//
// # Assertion Types
//
//   - statement_contains: a statement of the step contains text
//   - statement_count: the step sent exactly count statements to a store
//   - error_code: the step failed with the given validation code
//
// # Deterministic Testing
//
// New nodes get uuids from testutil.SequenceUUIDGenerator, restarted per
// scenario, so the same scenario always compiles to the same statements
// and golden snapshots compare byte for byte.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/save.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
