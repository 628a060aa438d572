package zodemitter

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/oas2validator/internal/emitter"
	"github.com/mark3labs/oas2validator/internal/routes"
	"github.com/mark3labs/oas2validator/pkg/validator"
)

func usersModule() *emitter.Module {
	node := &validator.Object{Properties: []validator.Property{
		{Name: "name", Schema: &validator.String{MinLength: validator.Int(1)}, Required: true},
		{Name: "next", Schema: &validator.Nullable{Schema: &validator.Ref{Name: "NodeSchema"}}},
	}}
	user := &validator.Object{
		Strict: true,
		Properties: []validator.Property{
			{Name: "email", Schema: &validator.String{Format: "email"}, Required: true},
			{Name: "age", Schema: &validator.Number{Integer: true, Minimum: validator.Float(0), Maximum: validator.Float(150), ExclusiveMaximum: true}},
			{Name: "x-tag", Schema: &validator.Enum{Values: []any{"a", "b"}}},
			{Name: "head", Schema: &validator.Ref{Name: "NodeSchema"}},
		},
	}
	return &emitter.Module{
		Title:   "Users",
		Version: "1.0.0",
		Declarations: []emitter.Declaration{
			{Name: "NodeSchema", Schema: node, Cyclic: true},
			{Name: "UserSchema", Schema: user},
			{Name: "UsersQuerySchema", Schema: &validator.Object{Properties: []validator.Property{
				{Name: "limit", Schema: &validator.Number{Integer: true, Coerce: true}},
				{Name: "active", Schema: &validator.Boolean{Coerce: true}},
			}}},
		},
		Tables: &routes.Table{
			Request:  routes.Entries{"/users": {"GET": {"query": "UsersQuerySchema"}, "POST": {"body": "UserSchema"}}},
			Response: routes.Entries{"/users": {"GET": {}, "POST": {"201": "UserSchema", "default": "NodeSchema"}}},
		},
		RequestName:  "Request",
		ResponseName: "Response",
	}
}

func TestRender_Declarations(t *testing.T) {
	t.Parallel()
	src, err := Render(usersModule())
	require.NoError(t, err)
	out := string(src)

	assert.True(t, strings.HasPrefix(out, "// Code generated by oas2validator. DO NOT EDIT.\n"))
	assert.Contains(t, out, `import { z } from "zod";`)
	assert.Contains(t, out, "export const NodeSchema: z.ZodTypeAny = z.object({\n")
	assert.Contains(t, out, `  "next": z.lazy(() => NodeSchema).nullable().optional(),`)
	assert.Contains(t, out, `  "name": z.string().min(1),`)
	assert.Contains(t, out, "export const UserSchema = z.object({\n")
	assert.Contains(t, out, `  "email": z.string().email(),`)
	assert.Contains(t, out, `  "age": z.number().int().gte(0).lt(150).optional(),`)
	assert.Contains(t, out, `  "x-tag": z.enum(["a", "b"]).optional(),`)
	assert.Contains(t, out, "}).strict();")
	assert.Contains(t, out, `  "limit": z.preprocess(`+coerceNumber+`, z.number().int().finite()).optional(),`)
	assert.NotContains(t, out, "z.coerce")
	assert.Contains(t, out, "z.preprocess(")

	// Declarations appear in the order given.
	assert.Less(t, strings.Index(out, "export const NodeSchema"), strings.Index(out, "export const UserSchema"))
}

func TestRender_Tables(t *testing.T) {
	t.Parallel()
	src, err := Render(usersModule())
	require.NoError(t, err)
	out := string(src)

	want := `export const Response = {
  "/users": {
    "GET": {},
    "POST": {
      "201": UserSchema,
      "default": NodeSchema,
    },
  },
} as const;
`
	assert.Contains(t, out, want)
	assert.Contains(t, out, `"query": UsersQuerySchema,`)
	assert.Less(t, strings.Index(out, "export const Request"), strings.Index(out, "export const Response"))

	m := usersModule()
	m.Tables = nil
	src, err = Render(m)
	require.NoError(t, err)
	assert.NotContains(t, string(src), "as const")
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()
	a, err := Render(usersModule())
	require.NoError(t, err)
	b, err := Render(usersModule())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRender_Combinators(t *testing.T) {
	t.Parallel()
	m := &emitter.Module{Declarations: []emitter.Declaration{
		{Name: "PetSchema", Schema: &validator.Union{Branches: []validator.Schema{
			&validator.Literal{Value: "cat"}, &validator.Literal{Value: 3.5}, &validator.Null{},
		}}},
		{Name: "BothSchema", Schema: &validator.Intersection{Branches: []validator.Schema{
			&validator.Ref{Name: "PetSchema"}, &validator.Any{}, &validator.Object{Additional: &validator.String{}},
		}}},
		{Name: "MixedSchema", Schema: &validator.Enum{Values: []any{"a", 1.0, nil}}},
		{Name: "ListSchema", Schema: &validator.Array{MinItems: validator.Int(1), UniqueItems: true}},
		{Name: "OneSchema", Schema: &validator.Union{Branches: []validator.Schema{&validator.Boolean{}}}},
	}}
	src, err := Render(m)
	require.NoError(t, err)
	out := string(src)

	assert.Contains(t, out, `export const PetSchema = z.union([z.literal("cat"), z.literal(3.5), z.null()]);`)
	assert.Contains(t, out, "export const BothSchema = z.intersection(z.intersection(PetSchema, z.any()), z.object({}).catchall(z.string()));")
	assert.Contains(t, out, `export const MixedSchema = z.union([z.literal("a"), z.literal(1), z.null()]);`)
	assert.Contains(t, out, "export const ListSchema = z.array(z.any()).min(1).refine(")
	assert.Contains(t, out, "export const OneSchema = z.boolean();")
}

func TestRender_FormatsMatchGoChecks(t *testing.T) {
	t.Parallel()
	m := &emitter.Module{Declarations: []emitter.Declaration{
		{Name: "HostSchema", Schema: &validator.String{Format: "hostname"}},
		{Name: "IdSchema", Schema: &validator.Number{Integer: true, Format: "int64"}},
	}}
	src, err := Render(m)
	require.NoError(t, err)
	out := string(src)
	assert.Contains(t, out, "export const HostSchema = z.string().regex(new RegExp("+quote(hostnamePattern)+"));")
	assert.Contains(t, out, "export const IdSchema = z.number().int().gte(-9223372036854775808).lte(9223372036854775807);")

	// The zod pattern accepts exactly what the Go target accepts.
	re := regexp.MustCompile(hostnamePattern)
	host := &validator.String{Format: "hostname"}
	for _, s := range []string{"example.com", "a", "1host.local", "-bad.com", "bad_name", "ok-dash.io", "", "a..b"} {
		assert.Equal(t, host.Validate(s) == nil, re.MatchString(s), "%q", s)
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()
	_, err := Render(nil)
	require.Error(t, err)

	m := &emitter.Module{Declarations: []emitter.Declaration{
		{Name: "BadSchema", Schema: &validator.Ref{Target: "#/components/schemas/Bad"}},
	}}
	_, err = Render(m)
	require.ErrorContains(t, err, "BadSchema")
}

func TestQuote_NoHTMLEscaping(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"a<b>&c"`, quote("a<b>&c"))
	assert.Equal(t, `"line\nbreak"`, quote("line\nbreak"))
}
