package translate

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/oas2validator/internal/spec"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

const components = `openapi: 3.0.3
info: { title: t, version: "1" }
paths: {}
components:
  schemas:
    Email: { type: string, format: email }
    Age: { type: integer, minimum: 0, exclusiveMaximum: true, maximum: 150 }
    Status: { type: string, enum: [active, disabled] }
    Tags:
      type: array
      items: { type: string }
      maxItems: 3
    Loose: { type: object }
    Closed:
      type: object
      additionalProperties: false
      properties:
        a: { type: string }
    Scores:
      type: object
      additionalProperties: { type: number }
    Nick: { type: string, nullable: true }
    Choice:
      anyOf:
      - { type: string }
      - { type: integer }
    Base:
      type: object
      required: [id]
      properties:
        id: { type: string }
    Named:
      allOf:
      - $ref: '#/components/schemas/Base'
      - type: object
        required: [name]
        properties:
          name: { type: string }
          id: { type: string, minLength: 3 }
    Bounded:
      allOf:
      - $ref: '#/components/schemas/Closed'
      - type: object
        properties:
          b: { type: string }
    Tree:
      type: object
      properties:
        children:
          type: array
          items: { $ref: '#/components/schemas/Tree' }
`

func translateAll(t *testing.T) (map[string]validator.Schema, *spec.Document) {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(components))
	require.NoError(t, err)
	resolved, err := spec.Resolve(context.Background(), doc)
	require.NoError(t, err)

	tr := New(resolved.Graph)
	out := map[string]validator.Schema{}
	for _, id := range resolved.Graph.IDs() {
		target := resolved.Graph.Target(id)
		s, err := tr.Translate(target.Node, false)
		require.NoError(t, err, id)
		out[target.Name] = s
	}
	return out, resolved
}

func TestTranslate_Primitives(t *testing.T) {
	t.Parallel()
	s, _ := translateAll(t)

	assert.NoError(t, s["Email"].Validate("a@b.com"))
	assert.Error(t, s["Email"].Validate("not-an-email"))

	age := s["Age"].(*validator.Number)
	assert.True(t, age.Integer)
	assert.True(t, age.ExclusiveMaximum)
	assert.False(t, age.ExclusiveMinimum)
	assert.NoError(t, s["Age"].Validate(0))
	assert.Error(t, s["Age"].Validate(150))
	assert.Error(t, s["Age"].Validate(1.5))

	assert.Equal(t, []any{"active", "disabled"}, s["Status"].(*validator.Enum).Values)
	assert.Error(t, s["Status"].Validate("gone"))

	assert.NoError(t, s["Tags"].Validate([]any{"a", "b"}))
	assert.Error(t, s["Tags"].Validate([]any{"a", "b", "c", "d"}))
	assert.Error(t, s["Tags"].Validate([]any{1}))
}

func TestTranslate_Objects(t *testing.T) {
	t.Parallel()
	s, _ := translateAll(t)

	assert.NoError(t, s["Loose"].Validate(map[string]any{"anything": 1}))
	assert.Error(t, s["Loose"].Validate([]any{}))

	assert.NoError(t, s["Closed"].Validate(map[string]any{"a": "x"}))
	assert.Error(t, s["Closed"].Validate(map[string]any{"a": "x", "b": 1}))

	assert.NoError(t, s["Scores"].Validate(map[string]any{"math": 9.5}))
	assert.Error(t, s["Scores"].Validate(map[string]any{"math": "A"}))
}

func TestTranslate_NullableAndUnion(t *testing.T) {
	t.Parallel()
	s, _ := translateAll(t)

	require.IsType(t, &validator.Nullable{}, s["Nick"])
	assert.NoError(t, s["Nick"].Validate(nil))
	assert.NoError(t, s["Nick"].Validate("x"))

	require.IsType(t, &validator.Union{}, s["Choice"])
	assert.NoError(t, s["Choice"].Validate("x"))
	assert.NoError(t, s["Choice"].Validate(3))
	assert.Error(t, s["Choice"].Validate(true))
}

func TestTranslate_AllOfMergesObjects(t *testing.T) {
	t.Parallel()
	s, _ := translateAll(t)

	named, ok := s["Named"].(*validator.Object)
	require.True(t, ok, "plain object branches merge into one object, got %T", s["Named"])
	require.Len(t, named.Properties, 2)
	assert.Equal(t, "id", named.Properties[0].Name)
	assert.True(t, named.Properties[0].Required)
	assert.IsType(t, &validator.Intersection{}, named.Properties[0].Schema)
	assert.Equal(t, "name", named.Properties[1].Name)

	assert.NoError(t, named.Validate(map[string]any{"id": "abc", "name": "n"}))
	assert.Error(t, named.Validate(map[string]any{"id": "ab", "name": "n"}), "both id constraints apply")
	assert.Error(t, named.Validate(map[string]any{"id": "abc"}), "required sets are unioned")
}

func TestTranslate_AllOfWithStrictBranchIntersects(t *testing.T) {
	t.Parallel()
	s, _ := translateAll(t)

	bounded, ok := s["Bounded"].(*validator.Intersection)
	require.True(t, ok, "got %T", s["Bounded"])
	assert.Len(t, bounded.Branches, 2)
	ref, ok := bounded.Branches[0].(*validator.Ref)
	require.True(t, ok)
	assert.Equal(t, "#/components/schemas/Closed", ref.Target)
}

func TestTranslate_CyclicReferenceStaysSymbolic(t *testing.T) {
	t.Parallel()
	s, _ := translateAll(t)

	tree := s["Tree"].(*validator.Object)
	items := tree.Properties[0].Schema.(*validator.Array).Items
	ref, ok := items.(*validator.Ref)
	require.True(t, ok)
	assert.Equal(t, "#/components/schemas/Tree", ref.Target)
	assert.Empty(t, ref.Name)
}

func TestTranslate_CoercionInlinesReferences(t *testing.T) {
	t.Parallel()
	_, resolved := translateAll(t)
	tr := New(resolved.Graph)

	node := &spec.SchemaNode{
		Kind:              spec.KindObject,
		AdditionalAllowed: true,
		Properties: []spec.Property{
			{Name: "age", Schema: &spec.SchemaNode{Kind: spec.KindReference, Target: "#/components/schemas/Age"}, Required: true},
			{Name: "flag", Schema: &spec.SchemaNode{Kind: spec.KindBoolean}},
		},
	}
	s, err := tr.Translate(node, true)
	require.NoError(t, err)
	assert.NoError(t, s.Validate(map[string]any{"age": "42", "flag": "true"}))
	assert.Error(t, s.Validate(map[string]any{"age": "old"}))
	assert.Error(t, s.Validate(map[string]any{"age": "151"}))
}

func TestTranslate_UnknownKind(t *testing.T) {
	t.Parallel()
	tr := New(nil)
	_, err := tr.Translate(&spec.SchemaNode{Kind: "tuple", Pointer: "#/x"}, false)
	var use *spec.UnsupportedSchemaError
	require.ErrorAs(t, err, &use)
	assert.Equal(t, "#/x", use.Pointer)
}

func TestTranslate_MissingTarget(t *testing.T) {
	t.Parallel()
	_, resolved := translateAll(t)
	tr := New(resolved.Graph)
	_, err := tr.Translate(&spec.SchemaNode{Kind: spec.KindReference, Target: "#/components/schemas/Nope", Pointer: "#/p"}, false)
	var ure *spec.UnresolvedReferenceError
	require.ErrorAs(t, err, &ure)
	assert.Equal(t, "#/components/schemas/Nope", ure.Pointer)
}
