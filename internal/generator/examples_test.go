package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const examplesSpec = `openapi: 3.0.3
info: { title: Examples, version: "1.0.0" }
paths:
  /pets:
    post:
      requestBody:
        content:
          application/json:
            schema: { $ref: '#/components/schemas/Pet' }
            example: { name: Rex, tags: [good], parent: { name: Old } }
      responses:
        "201":
          description: created
          content:
            application/json:
              schema:
                type: object
                required: [id]
                properties:
                  id: { type: integer, format: int64 }
              examples:
                second: { value: { id: 2 } }
                first: { value: { id: 1 } }
        "400":
          description: bad
          content:
            application/json:
              schema: { $ref: '#/components/schemas/Problem' }
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        name: { type: string, minLength: 1 }
        tags: { type: array, items: { type: string } }
        parent: { $ref: '#/components/schemas/Pet' }
      example: { name: Kit, parent: { name: Cat } }
    Problem:
      type: object
      required: [code]
      properties:
        code: { type: string, enum: [INVALID] }
      example: { code: INVALID }
`

func TestGenerate_DocumentExamplesAreAccepted(t *testing.T) {
	t.Parallel()
	res := generate(t, examplesSpec, DefaultOptions())

	examples := res.Examples()
	require.Len(t, examples, 4, "%+v", examples)

	body, ok := res.Request().Lookup("/pets", "POST", "body")
	require.True(t, ok)
	created, ok := res.Response().Lookup("/pets", "POST", "201")
	require.True(t, ok)

	byPointer := map[string]Example{}
	for _, ex := range examples {
		byPointer[ex.Pointer] = ex
	}
	bodyEx, ok := byPointer["#/paths/~1pets/post/requestBody/content/application~1json/schema"]
	require.True(t, ok, "%+v", examples)
	assert.NoError(t, body.Validate(bodyEx.Value))

	createdEx, ok := byPointer["#/paths/~1pets/post/responses/201/content/application~1json/schema"]
	require.True(t, ok, "%+v", examples)
	assert.Equal(t, map[string]any{"id": 1.0}, createdEx.Value, "named examples are taken in sorted order")
	assert.NoError(t, created.Validate(createdEx.Value))

	for _, id := range []string{"#/components/schemas/Pet", "#/components/schemas/Problem"} {
		ex, ok := byPointer[id]
		require.True(t, ok, "%s: %+v", id, examples)
		s, ok := res.Validator(ex.Declaration)
		require.True(t, ok)
		assert.NoError(t, s.Validate(ex.Value), id)
	}

	assert.Empty(t, res.CheckExamples())
}

func TestGenerate_CheckExamplesReportsMismatch(t *testing.T) {
	t.Parallel()
	doc := `openapi: 3.0.3
info: { title: Bad, version: "1.0.0" }
paths: {}
components:
  schemas:
    Count:
      type: integer
      minimum: 0
      example: -3
`
	res := generate(t, doc, DefaultOptions())
	mismatches := res.CheckExamples()
	require.Len(t, mismatches, 1)
	assert.Equal(t, "#/components/schemas/Count", mismatches[0].Pointer)
	assert.Equal(t, "CountSchema", mismatches[0].Declaration)
	assert.Contains(t, mismatches[0].Error(), "rejected by CountSchema")
}
