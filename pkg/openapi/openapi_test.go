package openapi_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/aretw0/formguard/pkg/openapi"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity(t *testing.T) {
	rule := schema.Object(
		schema.Field("name", schema.String().Min(2).Max(10).Pattern(`^[a-z]+$`)),
		schema.Field("email", schema.String().Format(schema.FormatEmail).Optional()),
		schema.Field("timeout", schema.Number().Integer().Min(1).Max(120).Default(30)),
		schema.Field("method", schema.Enum("GET", "POST")),
		schema.Field("since", schema.Date().Nullable()),
		schema.Field("tags", schema.Array(schema.String()).MinItems(1)),
	).Refine(schema.Equal("name", "email", ""))

	s := openapi.Entity(rule)

	assert.True(t, s.Type.Is(openapi3.TypeObject))
	assert.Equal(t, []string{"name", "method", "since", "tags"}, s.Required)

	name := s.Properties["name"].Value
	assert.Equal(t, uint64(2), name.MinLength)
	require.NotNil(t, name.MaxLength)
	assert.Equal(t, uint64(10), *name.MaxLength)
	assert.Equal(t, `^(?:^[a-z]+$)$`, name.Pattern)

	assert.Equal(t, "email", s.Properties["email"].Value.Format)

	timeout := s.Properties["timeout"].Value
	assert.True(t, timeout.Type.Is(openapi3.TypeInteger))
	assert.Equal(t, int64(30), timeout.Default)
	assert.Equal(t, 120.0, *timeout.Max)

	assert.Equal(t, []any{"GET", "POST"}, s.Properties["method"].Value.Enum)
	assert.True(t, s.Properties["since"].Value.Nullable)
	assert.Equal(t, "date-time", s.Properties["since"].Value.Format)

	tags := s.Properties["tags"].Value
	assert.True(t, tags.Type.Is(openapi3.TypeArray))
	assert.Equal(t, uint64(1), tags.MinItems)
	assert.True(t, tags.Items.Value.Type.Is(openapi3.TypeString))

	assert.Len(t, s.Extensions["x-refinements"], 1)
}

func TestDocument(t *testing.T) {
	doc, err := openapi.Document(catalog.Default(), "test")
	require.NoError(t, err)

	for _, name := range catalog.Default().Names() {
		assert.Contains(t, doc.Components.Schemas, name)
		item := doc.Paths.Value("/validate/" + name)
		require.NotNil(t, item, name)
		assert.NotNil(t, item.Post)
	}

	loader := openapi3.NewLoader()
	require.NoError(t, loader.ResolveRefsIn(doc, nil))
	assert.NoError(t, doc.Validate(context.Background()))

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"/validate/auth.change_password"`)
}
