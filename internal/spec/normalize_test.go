package spec

import (
	"context"
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDoc(t *testing.T, y string) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(y))
	require.NoError(t, err)
	return doc
}

const usersSpec = `openapi: 3.0.3
info: { title: Users, version: "1.0.0" }
paths:
  /users:
    parameters:
    - in: header
      name: X-Trace
      schema: { type: string }
    get:
      tags: [users]
      parameters:
      - in: query
        name: limit
        schema: { type: integer, minimum: 1 }
      - in: header
        name: Accept
        schema: { type: string }
      - in: cookie
        name: session
        schema: { type: string }
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items: { $ref: '#/components/schemas/User' }
        "404":
          description: missing
    post:
      tags: [admin]
      requestBody:
        required: true
        content:
          text/plain:
            schema: { type: string }
          application/vnd.api+json:
            schema: { type: integer }
          application/json:
            schema: { $ref: '#/components/schemas/User' }
            example: { id: "u1" }
      responses:
        "201":
          description: created
  /users/{id}:
    get:
      parameters:
      - in: path
        name: id
        schema: { type: string, format: uuid }
      responses:
        default:
          description: any
components:
  schemas:
    User:
      type: object
      required: [id, extra]
      properties:
        id: { type: string }
        tags:
          type: array
          items: { type: string }
      additionalProperties: false
`

func TestResolve_UsersDocument(t *testing.T) {
	t.Parallel()
	out, err := Resolve(context.Background(), loadDoc(t, usersSpec))
	require.NoError(t, err)

	assert.Equal(t, "Users", out.Title)
	require.Len(t, out.Routes, 3)
	assert.Equal(t, "/users", out.Routes[0].Path)
	assert.Equal(t, GET, out.Routes[0].Method)
	assert.Equal(t, POST, out.Routes[1].Method)
	assert.Equal(t, "/users/{id}", out.Routes[2].Path)

	user := out.Graph.Target(componentPrefix + "User")
	require.NotNil(t, user)
	assert.True(t, user.Component)
	assert.False(t, user.Cyclic)
	assert.Equal(t, KindObject, user.Node.Kind)
	assert.False(t, user.Node.AdditionalAllowed)
	require.Len(t, user.Node.Properties, 3)
	assert.Equal(t, "extra", user.Node.Properties[0].Name)
	assert.Equal(t, KindAny, user.Node.Properties[0].Schema.Kind)
	assert.True(t, user.Node.Properties[0].Required)
	assert.Equal(t, "tags", user.Node.Properties[2].Name)
	assert.False(t, user.Node.Properties[2].Required)

	list := out.Routes[0]
	require.NotNil(t, list.Query)
	require.Len(t, list.Query.Properties, 1)
	assert.Equal(t, "limit", list.Query.Properties[0].Name)
	require.NotNil(t, list.Headers)
	require.Len(t, list.Headers.Properties, 1, "accept and cookies are dropped")
	assert.Equal(t, "x-trace", list.Headers.Properties[0].Name)
	assert.Nil(t, list.Params)
	assert.Nil(t, list.Body)

	require.Len(t, list.Responses, 2)
	assert.Equal(t, "200", list.Responses[0].Status)
	assert.Equal(t, KindArray, list.Responses[0].Schema.Kind)
	assert.Equal(t, KindReference, list.Responses[0].Schema.Items.Kind)
	assert.Equal(t, componentPrefix+"User", list.Responses[0].Schema.Items.Target)
	assert.Equal(t, KindAny, list.Responses[1].Schema.Kind)

	create := out.Routes[1]
	require.NotNil(t, create.Body)
	assert.Equal(t, KindReference, create.Body.Kind, "application/json wins")
	assert.True(t, create.BodyRequired)
	assert.Equal(t, map[string]any{"id": "u1"}, create.BodyExample)

	byID := out.Routes[2]
	require.NotNil(t, byID.Params)
	assert.True(t, byID.Params.Properties[0].Required)
	assert.Equal(t, "uuid", byID.Params.Properties[0].Schema.Format)
	assert.Equal(t, "default", byID.Responses[0].Status)
}

func TestResolve_OperationParamOverridesPathLevel(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, `openapi: 3.0.3
info: { title: t, version: "1" }
paths:
  /items:
    parameters:
    - in: query
      name: page
      schema: { type: string }
    get:
      parameters:
      - in: query
        name: page
        required: true
        schema: { type: integer }
      responses: { "200": { description: ok } }
`)
	out, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	q := out.Routes[0].Query
	require.Len(t, q.Properties, 1)
	assert.Equal(t, KindInteger, q.Properties[0].Schema.Kind)
	assert.True(t, q.Properties[0].Required)
}

func TestResolve_MarksCycles(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, `openapi: 3.0.3
info: { title: t, version: "1" }
paths: {}
components:
  schemas:
    Node:
      type: object
      properties:
        children:
          type: array
          items: { $ref: '#/components/schemas/Node' }
    Leaf:
      type: string
`)
	out, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, out.Graph.Target(componentPrefix+"Node").Cyclic)
	assert.False(t, out.Graph.Target(componentPrefix+"Leaf").Cyclic)
	assert.Equal(t, []string{componentPrefix + "Leaf", componentPrefix + "Node"}, out.Graph.IDs())
}

func TestResolve_Alias(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, `openapi: 3.0.3
info: { title: t, version: "1" }
paths: {}
components:
  schemas:
    Id: { $ref: '#/components/schemas/Uuid' }
    Uuid: { type: string, format: uuid }
`)
	out, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	alias := out.Graph.Target(componentPrefix + "Id")
	require.NotNil(t, alias)
	assert.Equal(t, KindReference, alias.Node.Kind)
	assert.Equal(t, componentPrefix+"Uuid", alias.Node.Target)
}

func TestResolve_UnresolvedReference(t *testing.T) {
	t.Parallel()
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "t", Version: "1"},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{
			"Holder": openapi3.NewSchemaRef("", &openapi3.Schema{
				Type: &openapi3.Types{openapi3.TypeObject},
				Properties: openapi3.Schemas{
					"missing": openapi3.NewSchemaRef("#/components/schemas/Missing", nil),
				},
			}),
		}},
	}
	_, err := Resolve(context.Background(), doc)
	var ure *UnresolvedReferenceError
	require.ErrorAs(t, err, &ure)
	assert.Equal(t, "#/components/schemas/Missing", ure.Pointer)
	assert.Equal(t, "#/components/schemas/Holder/properties/missing", ure.Referrer)
	assert.True(t, errors.Is(err, ErrGeneration))
}

func TestResolve_NotIsUnsupported(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, `openapi: 3.0.3
info: { title: t, version: "1" }
paths: {}
components:
  schemas:
    NotString:
      not: { type: string }
`)
	_, err := Resolve(context.Background(), doc)
	var use *UnsupportedSchemaError
	require.ErrorAs(t, err, &use)
	assert.Equal(t, "not", use.Keyword)
	assert.Equal(t, "#/components/schemas/NotString", use.Pointer)
}

func TestResolve_UnmodeledKeywordsAreUnsupported(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		schema  string
		keyword string
		pointer string
	}{
		{
			name:    "const",
			schema:  "type: object\n      properties:\n        c: { type: string, const: fixed }",
			keyword: "const",
			pointer: "#/components/schemas/Subject/properties/c",
		},
		{
			name:    "patternProperties",
			schema:  "type: object\n      patternProperties:\n        \"^x\": { type: integer }\n      additionalProperties: false",
			keyword: "patternProperties",
			pointer: "#/components/schemas/Subject",
		},
		{
			name:    "first key in sorted order",
			schema:  "type: array\n      prefixItems: [{ type: string }]\n      contains: { type: string }",
			keyword: "contains",
			pointer: "#/components/schemas/Subject",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := loadDoc(t, "openapi: 3.0.3\ninfo: { title: t, version: \"1\" }\npaths: {}\ncomponents:\n  schemas:\n    Subject:\n      "+tc.schema+"\n")
			_, err := Resolve(context.Background(), doc)
			var use *UnsupportedSchemaError
			require.ErrorAs(t, err, &use)
			assert.Equal(t, tc.keyword, use.Keyword)
			assert.Equal(t, tc.pointer, use.Pointer)
			assert.True(t, errors.Is(err, ErrGeneration))
		})
	}
}

func TestResolve_ExtensionsAndAnnotationsAreIgnored(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, `openapi: 3.0.3
info: { title: t, version: "1" }
paths: {}
components:
  schemas:
    Tagged:
      type: string
      x-go-name: TaggedName
      $comment: free text
      examples: [a, b]
`)
	out, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	target := out.Graph.Target("#/components/schemas/Tagged")
	require.NotNil(t, target)
	assert.Equal(t, KindString, target.Node.Kind)
}

func TestResolve_DuplicateRoute(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, `openapi: 3.0.3
info: { title: t, version: "1" }
paths:
  /u/{id}:
    get:
      parameters: [{ in: path, name: id, required: true, schema: { type: string } }]
      responses: { "200": { description: ok } }
  /u/{uid}:
    get:
      parameters: [{ in: path, name: uid, required: true, schema: { type: string } }]
      responses: { "200": { description: ok } }
`)
	_, err := Resolve(context.Background(), doc)
	var dre *DuplicateRouteError
	require.ErrorAs(t, err, &dre)
	assert.Equal(t, GET, dre.Method)
	assert.Equal(t, "/u/{uid}", dre.Path)
	assert.Equal(t, "/u/{id}", dre.Existing)
}

func TestResolve_NullableAndComposition(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, `openapi: 3.0.3
info: { title: t, version: "1" }
paths: {}
components:
  schemas:
    Maybe: { type: string, nullable: true }
    Either:
      oneOf:
      - { type: string }
      - { type: integer }
    Both:
      allOf:
      - { type: object, properties: { a: { type: string } } }
      - { type: object, properties: { b: { type: string } } }
    Color: { type: string, enum: [red, green] }
    Only: { enum: [x] }
`)
	out, err := Resolve(context.Background(), doc)
	require.NoError(t, err)
	node := func(name string) *SchemaNode { return out.Graph.Target(componentPrefix + name).Node }

	assert.True(t, node("Maybe").Nullable)
	assert.Equal(t, KindOneOf, node("Either").Kind)
	assert.Len(t, node("Either").Branches, 2)
	assert.Equal(t, KindAllOf, node("Both").Kind)
	assert.Equal(t, KindEnum, node("Color").Kind)
	assert.Equal(t, []any{"red", "green"}, node("Color").Values)
	assert.Equal(t, KindLiteral, node("Only").Kind)
	assert.Equal(t, "x", node("Only").Value)
}

func TestResolve_Filters(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, usersSpec)

	out, err := Resolve(context.Background(), doc, WithIncludeTags([]string{"users"}))
	require.NoError(t, err)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, GET, out.Routes[0].Method)

	out, err = Resolve(context.Background(), doc, WithExcludeTags([]string{"admin"}), WithMethods([]HttpMethod{"get"}))
	require.NoError(t, err)
	assert.Len(t, out.Routes, 2)

	out, err = Resolve(context.Background(), doc, WithPathPatterns([]string{`\{id\}$`}))
	require.NoError(t, err)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, "/users/{id}", out.Routes[0].Path)

	out, err = Resolve(context.Background(), doc, WithPathPatterns([]string{"("}))
	require.NoError(t, err)
	assert.Empty(t, out.Routes)
	assert.NotNil(t, out.Graph.Target(componentPrefix+"User"), "components resolve regardless of filters")
}

func TestResolve_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Resolve(ctx, loadDoc(t, usersSpec))
	assert.ErrorIs(t, err, context.Canceled)
}
