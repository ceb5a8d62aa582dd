package harness

// Statement is one statement a store received during a step.
type Statement struct {
	Text   string         `json:"text"`
	Params map[string]any `json:"params,omitempty"`
	Args   []any          `json:"args,omitempty"`
}

// TraceEvent records what one scenario step sent and returned.
type TraceEvent struct {
	Step       int         `json:"step"`
	Op         string      `json:"op"`
	Graph      []Statement `json:"graph"`
	Relational []Statement `json:"relational"`
	Result     any         `json:"result,omitempty"`

	// Error is the validation code when the step failed validation, else
	// the error text.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Event returns the trace event of a step, or false when the step never
// ran.
func (r *Result) Event(step int) (TraceEvent, bool) {
	for _, e := range r.Trace {
		if e.Step == step {
			return e, true
		}
	}
	return TraceEvent{}, false
}
