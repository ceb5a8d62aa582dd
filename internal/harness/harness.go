package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/querysql"
	"github.com/roach88/geograph/internal/testutil"
	"github.com/roach88/geograph/internal/testutil/fakestore"
	"github.com/roach88/geograph/pkg/geograph"
)

// Harness runs scenario steps through a Client over in-memory stores.
type Harness struct {
	graph      *fakestore.GraphStore
	relational *fakestore.RelationalStore // nil for graph-only scenarios
	client     *geograph.Client

	// records answers graph statements of the running step.
	records []ir.Record
}

// Run executes a scenario and returns the result.
//
// Each scenario gets fresh stores and a fresh uuid sequence. A step that
// fails unexpectedly is recorded as an error; later steps still run.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{graph: fakestore.NewGraphStore()}
	h.graph.Respond = func(string, ir.Params) ([]ir.Record, error) {
		return h.records, nil
	}

	opts := []geograph.Option{
		geograph.WithUUIDGenerator(testutil.NewSequenceUUIDGenerator()),
		geograph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	}
	if !scenario.GraphOnly {
		h.relational = fakestore.NewRelationalStore()
		opts = append(opts, geograph.WithRelationalStore(h.relational))
	}
	if scenario.Labels {
		opts = append(opts, geograph.WithLabels())
	}
	h.client = geograph.New(h.graph, opts...)

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
		result.Trace = append(result.Trace, event)

		switch {
		case step.ExpectError == "" && event.Error != "":
			result.AddError(fmt.Sprintf("steps[%d]: unexpected error %s", i, event.Error))
		case step.ExpectError != "" && event.Error != string(step.ExpectError):
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %q", i, step.ExpectError, event.Error))
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and captures the statements it sent. The
// returned error is for malformed steps only; client failures land in the
// event.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) (TraceEvent, error) {
	h.records = make([]ir.Record, len(step.Records))
	for i, rec := range step.Records {
		h.records[i] = ir.Record(rec)
	}
	graphBefore := len(h.graph.Statements())
	relationalBefore := 0
	if h.relational != nil {
		relationalBefore = len(h.relational.Statements())
	}

	result, err := h.call(ctx, step)
	if errors.Is(err, errMalformedStep) {
		return TraceEvent{}, err
	}

	event := TraceEvent{
		Step:       index,
		Op:         step.Op,
		Graph:      graphStatements(h.graph.Statements()[graphBefore:]),
		Relational: []Statement{},
		Result:     result,
	}
	if h.relational != nil {
		event.Relational = relationalStatements(h.relational.Statements()[relationalBefore:])
	}
	if err != nil {
		var ve *ir.ValidationError
		if errors.As(err, &ve) {
			event.Error = string(ve.Code)
		} else {
			event.Error = err.Error()
		}
		event.Result = nil
	}
	return event, nil
}

var errMalformedStep = errors.New("malformed step")

func (h *Harness) call(ctx context.Context, step Step) (any, error) {
	switch step.Op {
	case OpSave:
		var opts []geograph.SaveOption
		if step.NoUpdate {
			opts = append(opts, geograph.WithoutUpdate())
		}
		return h.client.Save(ctx, step.Graph, opts...)
	case OpFind:
		return h.client.Find(ctx, *step.Query)
	case OpFindByID:
		found, err := h.client.FindByID(ctx, step.Label, step.UUIDs[0])
		if found == nil {
			return nil, err
		}
		return found, err
	case OpSpatial:
		sq, err := spatialQuery(step.Spatial)
		if err != nil {
			return nil, err
		}
		return h.client.FindBySpatialQuery(ctx, *step.Query, sq)
	case OpDeleteByID:
		return h.client.DeleteNodesByID(ctx, step.Label, step.UUIDs)
	case OpDeleteByQuery:
		return h.client.DeleteNodesByQuery(ctx, *step.Query)
	case OpDeleteRelationships:
		return nil, h.client.DeleteRelationships(ctx, step.Graph)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", errMalformedStep, step.Op)
	}
}

func spatialQuery(s *SpatialStep) (querysql.SpatialQuery, error) {
	raw, err := json.Marshal(s.Geometry)
	if err != nil {
		return querysql.SpatialQuery{}, fmt.Errorf("%w: spatial geometry: %v", errMalformedStep, err)
	}
	return querysql.SpatialQuery{
		Nodes:    s.Nodes,
		Op:       querysql.SpatialOp(s.Op),
		Geometry: raw,
		Distance: s.Distance,
	}, nil
}

func graphStatements(in []fakestore.Statement) []Statement {
	out := make([]Statement, len(in))
	for i, st := range in {
		params := make(map[string]any, len(st.Params))
		for id, bag := range st.Params {
			params[id] = bag
		}
		out[i] = Statement{Text: st.Text, Params: params}
	}
	return out
}

func relationalStatements(in []fakestore.Statement) []Statement {
	out := make([]Statement, len(in))
	for i, st := range in {
		out[i] = Statement{Text: st.Text, Args: st.Args}
	}
	return out
}
