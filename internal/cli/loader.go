package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/geograph/internal/querysql"
	"github.com/roach88/geograph/pkg/geograph"
)

// LoadError is returned when an input file cannot be read or has the wrong
// shape.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// readDocument decodes a YAML or JSON file. "-" reads stdin.
func readDocument(path string, stdin io.Reader) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Err: err}
	}

	var doc any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Path: path, Message: "file is empty"}
		}
		return nil, &LoadError{Path: path, Message: "failed to parse", Err: err}
	}
	return doc, nil
}

// LoadGraphs reads one graph object or a list of graph objects.
func LoadGraphs(path string, stdin io.Reader) ([]map[string]any, error) {
	doc, err := readDocument(path, stdin)
	if err != nil {
		return nil, err
	}

	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		graphs := make([]map[string]any, len(v))
		for i, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, &LoadError{Path: path, Message: fmt.Sprintf("element %d is not an object", i)}
			}
			graphs[i] = m
		}
		return graphs, nil
	default:
		return nil, &LoadError{Path: path, Message: "expected an object or a list of objects"}
	}
}

// QueryFile is a find query with an optional spatial search:
//
//	label: Place
//	filter: "[name STARTS WITH 'P']"
//	relations: [owner]
//	spatial:
//	  nodes: [Place.area]
//	  op: intersects
//	  geometry: {type: Point, coordinates: [1, 2]}
type QueryFile struct {
	Query   geograph.Query
	Spatial *querysql.SpatialQuery
}

// LoadQuery reads a QueryFile.
func LoadQuery(path string, stdin io.Reader) (*QueryFile, error) {
	doc, err := readDocument(path, stdin)
	if err != nil {
		return nil, err
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, &LoadError{Path: path, Message: "expected a query object"}
	}

	qf := &QueryFile{}
	if raw, ok := m["spatial"]; ok {
		sq, err := spatialQuery(raw)
		if err != nil {
			return nil, &LoadError{Path: path, Message: "invalid spatial search", Err: err}
		}
		qf.Spatial = sq
		m = withoutKey(m, "spatial")
	}

	q, err := geograph.QueryFromMap(m)
	if err != nil {
		return nil, err
	}
	qf.Query = q
	return qf, nil
}

// spatialQuery converts the decoded "spatial" object through its JSON form.
func spatialQuery(raw any) (*querysql.SpatialQuery, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var sq querysql.SpatialQuery
	if err := json.Unmarshal(data, &sq); err != nil {
		return nil, err
	}
	return &sq, nil
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
