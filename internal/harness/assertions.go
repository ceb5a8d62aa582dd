package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string      // Assertion type for categorization
	Expected   string      // Human-readable expected outcome
	Actual     string      // Human-readable actual outcome
	Statements []Statement // Statements of the checked step
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Statements) > 0 {
		fmt.Fprintf(&buf, "\nStatements:\n")
		for i, st := range e.Statements {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, strings.ReplaceAll(st.Text, "\n", "\n      "))
		}
	}
	return buf.String()
}

// statementsOf returns the statements a step sent to the assertion's store.
func statementsOf(event TraceEvent, a Assertion) []Statement {
	if a.Store == StoreRelational {
		return event.Relational
	}
	return event.Graph
}

func storeName(a Assertion) string {
	if a.Store == "" {
		return StoreGraph
	}
	return a.Store
}

// assertStatementContains checks that one statement of the step contains
// the assertion text.
func assertStatementContains(event TraceEvent, a Assertion) error {
	statements := statementsOf(event, a)
	for _, st := range statements {
		if strings.Contains(st.Text, a.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:       AssertStatementContains,
		Expected:   fmt.Sprintf("a %s statement of step %d containing %q", storeName(a), a.Step, a.Text),
		Actual:     "not found",
		Statements: statements,
	}
}

// assertStatementCount checks the exact number of statements the step
// sent to one store.
func assertStatementCount(event TraceEvent, a Assertion) error {
	statements := statementsOf(event, a)
	if len(statements) != a.Count {
		return &AssertionError{
			Type:       AssertStatementCount,
			Expected:   fmt.Sprintf("%d %s statements in step %d", a.Count, storeName(a), a.Step),
			Actual:     fmt.Sprintf("%d statements", len(statements)),
			Statements: statements,
		}
	}
	return nil
}

// assertErrorCode checks that the step failed with the given code.
func assertErrorCode(event TraceEvent, a Assertion) error {
	if event.Error != string(a.Code) {
		actual := event.Error
		if actual == "" {
			actual = "no error"
		}
		return &AssertionError{
			Type:     AssertErrorCode,
			Expected: fmt.Sprintf("step %d to fail with %s", a.Step, a.Code),
			Actual:   actual,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		event, ok := result.Event(assertion.Step)
		if !ok {
			errors = append(errors, fmt.Sprintf("assertion[%d]: step %d did not run", i, assertion.Step))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertStatementContains:
			err = assertStatementContains(event, assertion)
		case AssertStatementCount:
			err = assertStatementCount(event, assertion)
		case AssertErrorCode:
			err = assertErrorCode(event, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
