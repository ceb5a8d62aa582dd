package graphdb

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/roach88/geograph/internal/ir"
)

// convertRecord maps driver values to ir types by column name.
func convertRecord(rec *neo4j.Record) ir.Record {
	out := make(ir.Record, len(rec.Keys))
	for i, key := range rec.Keys {
		out[key] = convertValue(rec.Values[i])
	}
	return out
}

// convertValue converts nodes, relationships and paths to ir records.
// Lists are converted element-wise and keep their nesting; scalars pass
// through unchanged.
func convertValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return ir.NodeRecord{
			ID:     val.ElementId,
			Labels: append([]string(nil), val.Labels...),
			Props:  convertProps(val.Props),
		}
	case dbtype.Relationship:
		return ir.RelationshipRecord{
			ID:      val.ElementId,
			StartID: val.StartElementId,
			EndID:   val.EndElementId,
			Type:    val.Type,
			Props:   convertProps(val.Props),
		}
	case dbtype.Path:
		items := make([]any, 0, len(val.Nodes)+len(val.Relationships))
		for _, n := range val.Nodes {
			items = append(items, convertValue(n))
		}
		for _, r := range val.Relationships {
			items = append(items, convertValue(r))
		}
		return items
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = convertValue(item)
		}
		return items
	case map[string]any:
		return convertProps(val)
	default:
		return v
	}
}

func convertProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = convertValue(v)
	}
	return out
}
