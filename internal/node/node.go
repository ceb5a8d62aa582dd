// Package node classifies the values of a JSON graph node.
//
// Every property of a node is classified once into a tagged Property so
// the compilers never re-inspect value shapes. Keys beginning with "_" and
// the uuid key are bookkeeping and never become properties.
package node

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/geograph/internal/ir"
)

// Reserved keys.
const (
	KeyUUID  = "uuid"
	KeyLabel = "_label"
	KeyArray = "_array"
)

// BaseLabel is carried by every node geograph writes.
const BaseLabel = "Geograph"

// Kind is the classification of a property value.
type Kind int

const (
	// Scalar is a string, number, bool, date or homogeneous scalar array.
	Scalar Kind = iota
	// Null is an explicit null.
	Null
	// GeoFeature is a GeoJSON Feature.
	GeoFeature
	// Node is a single nested node.
	Node
	// NodeArray is an array of nested nodes.
	NodeArray
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Null:
		return "null"
	case GeoFeature:
		return "geo-feature"
	case Node:
		return "node"
	case NodeArray:
		return "node-array"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Property is one classified property of a node.
type Property struct {
	Key  string
	Kind Kind

	// Value is the storable value for Scalar (dates converted to epoch
	// milliseconds, strings NFC-normalized) and nil for Null.
	Value any

	// Feature is the GeoJSON Feature for GeoFeature.
	Feature map[string]any

	// Nodes holds the nested node for Node (one element) and every nested
	// node for NodeArray.
	Nodes []map[string]any
}

var (
	labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
	keyPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidLabel reports whether s matches the label grammar.
func ValidLabel(s string) bool {
	return labelPattern.MatchString(s)
}

// ValidKey reports whether s can be used as a stored property key or
// relationship type.
func ValidKey(s string) bool {
	return keyPattern.MatchString(s)
}

// IsBookkeeping reports whether key is never stored as a property.
func IsBookkeeping(key string) bool {
	return key == KeyUUID || strings.HasPrefix(key, "_")
}

// IsUUID reports whether s is a canonical v4 uuid.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}

// Label returns the node's validated label.
func Label(n map[string]any) (string, error) {
	raw, ok := n[KeyLabel]
	if !ok {
		return "", ir.Invalid(ir.CodeInvalidLabel, "node has no %s", KeyLabel)
	}
	label, ok := raw.(string)
	if !ok || !ValidLabel(label) {
		return "", ir.Invalid(ir.CodeInvalidLabel, "label %v does not match [A-Za-z][A-Za-z0-9]*", raw)
	}
	return label, nil
}

// UUID returns the node's uuid when it carries a valid one.
func UUID(n map[string]any) (string, bool) {
	s, ok := n[KeyUUID].(string)
	if !ok || !IsUUID(s) {
		return "", false
	}
	return s, true
}

// HasUUID reports whether the node carries any uuid value, valid or not.
func HasUUID(n map[string]any) bool {
	v, ok := n[KeyUUID]
	return ok && v != nil
}

// ArrayHint reports whether the node asks to be stored as an element of an
// array relationship.
func ArrayHint(n map[string]any) bool {
	v, _ := n[KeyArray].(bool)
	return v
}

// IsGeoFeature reports whether v is a GeoJSON Feature: type "Feature" and
// an object geometry with a string type and array coordinates.
func IsGeoFeature(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || m["type"] != "Feature" {
		return false
	}
	geometry, ok := m["geometry"].(map[string]any)
	if !ok {
		return false
	}
	if _, ok := geometry["type"].(string); !ok {
		return false
	}
	coords := geometry["coordinates"]
	if coords == nil {
		return false
	}
	kind := reflect.TypeOf(coords).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// Classify returns the kind of a single value.
// Values that cannot be stored classify as Scalar; Properties reports them.
func Classify(v any) Kind {
	switch val := v.(type) {
	case nil:
		return Null
	case map[string]any:
		if IsGeoFeature(val) {
			return GeoFeature
		}
		return Node
	case []map[string]any:
		return NodeArray
	case []any:
		if len(val) > 0 && allNodes(val) {
			return NodeArray
		}
		return Scalar
	default:
		return Scalar
	}
}

func allNodes(values []any) bool {
	for _, v := range values {
		m, ok := v.(map[string]any)
		if !ok || IsGeoFeature(m) {
			return false
		}
	}
	return true
}

// Properties classifies every non-bookkeeping property of n, sorted by key.
func Properties(n map[string]any) ([]Property, error) {
	keys := make([]string, 0, len(n))
	for k := range n {
		if !IsBookkeeping(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	props := make([]Property, 0, len(keys))
	for _, k := range keys {
		if !ValidKey(k) {
			return nil, ir.Invalid(ir.CodeInvalidPropertyKey, "property key %q does not match [A-Za-z_][A-Za-z0-9_]*", k)
		}
		p, err := classifyProperty(k, n[k])
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

func classifyProperty(key string, v any) (Property, error) {
	p := Property{Key: key, Kind: Classify(v)}

	switch p.Kind {
	case Null:
	case GeoFeature:
		p.Feature = v.(map[string]any)
	case Node:
		p.Nodes = []map[string]any{v.(map[string]any)}
	case NodeArray:
		p.Nodes = nodeSlice(v)
	case Scalar:
		value, err := scalarValue(v)
		if err != nil {
			return Property{}, err.(*ir.ValidationError).With("key", key)
		}
		p.Value = value
	}
	return p, nil
}

func nodeSlice(v any) []map[string]any {
	switch val := v.(type) {
	case []map[string]any:
		return val
	case []any:
		out := make([]map[string]any, len(val))
		for i, elem := range val {
			out[i] = elem.(map[string]any)
		}
		return out
	}
	return nil
}

// ExtractPlainProperties returns the graph-storable subset of n: scalars,
// nulls, homogeneous scalar arrays and dates.
func ExtractPlainProperties(n map[string]any) (map[string]any, error) {
	props, err := Properties(n)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, p := range props {
		if p.Kind == Scalar || p.Kind == Null {
			out[p.Key] = p.Value
		}
	}
	return out, nil
}

// scalarValue converts v to a value the graph store accepts.
func scalarValue(v any) (any, error) {
	if s, ok := scalarElem(v); ok {
		return s.value, s.err
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ir.Invalid(ir.CodeInvalidProperty, "unsupported value of type %T", v)
	}

	out := make([]any, rv.Len())
	family := ""
	mixedNumbers := false
	for i := 0; i < rv.Len(); i++ {
		elem, ok := scalarElem(rv.Index(i).Interface())
		if ok && elem.err != nil {
			return nil, elem.err
		}
		if !ok || elem.family == "" {
			return nil, ir.Invalid(ir.CodeInvalidProperty, "array element %d is not a scalar", i)
		}
		switch {
		case family == "":
			family = elem.family
		case family != elem.family:
			if isNumeric(family) && isNumeric(elem.family) {
				mixedNumbers = true
			} else {
				return nil, ir.Invalid(ir.CodeInvalidProperty, "array mixes %s and %s values", family, elem.family)
			}
		}
		out[i] = elem.value
	}

	// Graph stores reject lists mixing integers and floats.
	if mixedNumbers {
		for i, e := range out {
			if n, ok := e.(int64); ok {
				out[i] = float64(n)
			}
		}
	}
	return out, nil
}

// unsignedElem converts an unsigned integer, rejecting values the graph
// store's 64-bit signed integers cannot hold.
func unsignedElem(n uint64) scalar {
	if n > math.MaxInt64 {
		return scalar{err: ir.Invalid(ir.CodeInvalidProperty, "integer %d overflows int64", n)}
	}
	return scalar{value: int64(n), family: "int"}
}

func isNumeric(family string) bool {
	return family == "int" || family == "float"
}

type scalar struct {
	value  any
	family string
	err    error
}

// scalarElem converts one non-array value. ok is false for values that are
// not scalars at all; family is "" for nil.
func scalarElem(v any) (scalar, bool) {
	switch val := v.(type) {
	case nil:
		return scalar{}, true
	case string:
		return scalar{value: norm.NFC.String(val), family: "string"}, true
	case bool:
		return scalar{value: val, family: "bool"}, true
	case int:
		return scalar{value: int64(val), family: "int"}, true
	case int8:
		return scalar{value: int64(val), family: "int"}, true
	case int16:
		return scalar{value: int64(val), family: "int"}, true
	case int32:
		return scalar{value: int64(val), family: "int"}, true
	case int64:
		return scalar{value: val, family: "int"}, true
	case uint8:
		return scalar{value: int64(val), family: "int"}, true
	case uint16:
		return scalar{value: int64(val), family: "int"}, true
	case uint32:
		return scalar{value: int64(val), family: "int"}, true
	case uint:
		return unsignedElem(uint64(val)), true
	case uint64:
		return unsignedElem(val), true
	case float32:
		return scalar{value: float64(val), family: "float"}, true
	case float64:
		return scalar{value: val, family: "float"}, true
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return scalar{value: n, family: "int"}, true
		}
		f, err := val.Float64()
		if err != nil {
			return scalar{err: ir.Invalid(ir.CodeInvalidProperty, "invalid number %q", val)}, true
		}
		return scalar{value: f, family: "float"}, true
	case time.Time:
		if val.IsZero() {
			return scalar{err: ir.Invalid(ir.CodeInvalidDate, "date must not be the zero time")}, true
		}
		return scalar{value: val.UnixMilli(), family: "int"}, true
	}
	return scalar{}, false
}
