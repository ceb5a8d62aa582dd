package ir

// Params maps an allocated identifier to its property bag.
//
// Query text addresses a bag as $vaa and a single entry as $vaa.name, so
// every value reaches the store as a parameter.
type Params map[string]map[string]any

// Bag returns the bag for id, creating it when absent.
func (p Params) Bag(id string) map[string]any {
	bag, ok := p[id]
	if !ok {
		bag = make(map[string]any)
		p[id] = bag
	}
	return bag
}

// Merge copies every bag of other into p.
// Identifiers are unique within a statement, so no bag is overwritten.
func (p Params) Merge(other Params) {
	for id, bag := range other {
		p[id] = bag
	}
}

// Driver converts the params to the flat map a store driver expects.
func (p Params) Driver() map[string]any {
	out := make(map[string]any, len(p))
	for id, bag := range p {
		out[id] = bag
	}
	return out
}

// Statement is one compiled graph-store statement.
type Statement struct {
	// Text is the query text. It never embeds caller values.
	Text string

	// Params holds every value referenced by Text.
	Params Params

	// Start is the caller-visible identity of the root (its uuid).
	// Empty for read statements.
	Start string

	// ID is the identifier allocated to the root node.
	ID string
}

// SQLStatement is one compiled relational-store statement using $n
// positional placeholders.
type SQLStatement struct {
	SQL  string
	Args []any
}
