package reconstruct

import (
	"fmt"
	"sort"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/queryir"
)

// GraphFromRecords merges point-lookup records (columns "nodes" and "rels"
// holding lists) into one graph. Nodes and relationships are deduplicated by
// element id.
func GraphFromRecords(records []ir.Record, nodesCol, relsCol string) (Graph, error) {
	var g Graph
	nodeSeen := make(map[string]bool)
	relSeen := make(map[string]bool)
	for _, rec := range records {
		nodes, rels, err := split(rec[nodesCol], rec[relsCol])
		if err != nil {
			return Graph{}, err
		}
		for _, n := range nodes {
			if !nodeSeen[n.ID] {
				nodeSeen[n.ID] = true
				g.Nodes = append(g.Nodes, n)
			}
		}
		for _, r := range rels {
			if !relSeen[r.ID] {
				relSeen[r.ID] = true
				g.Rels = append(g.Rels, r)
			}
		}
	}
	return g, nil
}

// RowsFromRecords converts filtered-find records into rows. Column "root"
// holds the root node; every other column holds a collected list of hop
// nodes or relationships.
func RowsFromRecords(records []ir.Record) ([]Row, error) {
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		root, ok := rec[queryir.ResultAlias].(ir.NodeRecord)
		if !ok {
			return nil, fmt.Errorf("record %d: column %q is %T, not a node", i, queryir.ResultAlias, rec[queryir.ResultAlias])
		}
		row := Row{Root: root}
		cols := make([]string, 0, len(rec))
		for col := range rec {
			if col != queryir.ResultAlias {
				cols = append(cols, col)
			}
		}
		sort.Strings(cols)
		for _, col := range cols {
			nodes, rels, err := split(rec[col])
			if err != nil {
				return nil, fmt.Errorf("record %d: column %q: %w", i, col, err)
			}
			row.Nodes = append(row.Nodes, nodes...)
			row.Rels = append(row.Rels, rels...)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// split sorts column values into nodes and relationships, flattening
// nested lists (variable-length matches collect lists of lists).
func split(values ...any) ([]ir.NodeRecord, []ir.RelationshipRecord, error) {
	var nodes []ir.NodeRecord
	var rels []ir.RelationshipRecord
	var visit func(v any) error
	visit = func(v any) error {
		switch val := v.(type) {
		case nil:
		case ir.NodeRecord:
			nodes = append(nodes, val)
		case ir.RelationshipRecord:
			rels = append(rels, val)
		case []ir.NodeRecord:
			nodes = append(nodes, val...)
		case []ir.RelationshipRecord:
			rels = append(rels, val...)
		case []any:
			for _, item := range val {
				if err := visit(item); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unexpected value of type %T", v)
		}
		return nil
	}
	for _, v := range values {
		if err := visit(v); err != nil {
			return nil, nil, err
		}
	}
	return nodes, rels, nil
}
