package spec

// Resolved model handed from the resolver to the translator.

type HttpMethod string

const (
	GET     HttpMethod = "GET"
	POST    HttpMethod = "POST"
	PUT     HttpMethod = "PUT"
	PATCH   HttpMethod = "PATCH"
	DELETE  HttpMethod = "DELETE"
	HEAD    HttpMethod = "HEAD"
	OPTIONS HttpMethod = "OPTIONS"
	TRACE   HttpMethod = "TRACE"
)

// Methods lists the HTTP methods in route enumeration order.
var Methods = []HttpMethod{GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS, TRACE}

type Kind string

const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindInteger   Kind = "integer"
	KindBoolean   Kind = "boolean"
	KindNull      Kind = "null"
	KindArray     Kind = "array"
	KindObject    Kind = "object"
	KindAnyOf     Kind = "anyOf"
	KindOneOf     Kind = "oneOf"
	KindAllOf     Kind = "allOf"
	KindEnum      Kind = "enum"
	KindLiteral   Kind = "literal"
	KindReference Kind = "reference"
	KindAny       Kind = "any"
)

// SchemaNode is one normalized schema. Only the fields relevant to Kind are set.
type SchemaNode struct {
	Kind     Kind
	Pointer  string // JSON pointer of the schema in the source document
	Nullable bool

	// string
	Format    string
	Pattern   string
	MinLength *int
	MaxLength *int

	// number, integer
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MultipleOf       *float64

	// array
	Items       *SchemaNode // nil: unconstrained elements
	MinItems    *int
	MaxItems    *int
	UniqueItems bool

	// object
	Properties []Property // sorted by name
	// AdditionalAllowed is false for additionalProperties: false.
	AdditionalAllowed bool
	Additional        *SchemaNode
	MinProperties     *int
	MaxProperties     *int

	// anyOf, oneOf, allOf
	Branches []*SchemaNode

	// enum, literal
	Values []any
	Value  any

	// reference: canonical id of a Target in the Graph
	Target string

	Example any
}

type Property struct {
	Name     string
	Schema   *SchemaNode
	Required bool
}

// Target is a resolved $ref destination.
type Target struct {
	ID        string // canonical id, e.g. "#/components/schemas/User"
	Name      string // last pointer segment, unescaped
	Node      *SchemaNode
	Component bool // declared under components.schemas
	Cyclic    bool // reached again while its own subtree was being resolved
}

// Graph holds every resolved target keyed by canonical id.
type Graph struct {
	Targets map[string]*Target
	order   []string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Targets: map[string]*Target{}}
}

// Target returns the target registered under id, or nil.
func (g *Graph) Target(id string) *Target {
	return g.Targets[id]
}

// IDs returns target ids in the order they were first reached.
func (g *Graph) IDs() []string {
	return append([]string(nil), g.order...)
}

// Add registers t, replacing any target with the same id.
func (g *Graph) Add(t *Target) {
	if _, ok := g.Targets[t.ID]; !ok {
		g.order = append(g.order, t.ID)
	}
	g.Targets[t.ID] = t
}

// Route is one operation with its parameter groups and responses. Groups
// absent from the operation are nil.
type Route struct {
	Path         string
	Method       HttpMethod
	OperationID  string
	Tags         []string
	Params       *SchemaNode
	Query        *SchemaNode
	Headers      *SchemaNode
	Body         *SchemaNode
	BodyRequired bool
	BodyExample  any
	Responses    []Response // sorted by status
}

type Response struct {
	Status      string // "200", "4XX", "default"
	Description string
	Schema      *SchemaNode // KindAny when the response declares no content
	Example     any
}

// Document is the resolver's output.
type Document struct {
	Title   string
	Version string
	Graph   *Graph
	Routes  []Route
}
