// Package openapi exports entity schemas as OpenAPI 3 documents.
package openapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/formguard/pkg/schema"
	"github.com/getkin/kin-openapi/openapi3"
)

// Source lists entity schemas. *catalog.Registry satisfies it.
type Source interface {
	Names() []string
	Get(name string) (schema.ObjectRule, error)
}

const (
	errorComponent   = "FieldError"
	failureComponent = "ValidationFailure"
	successComponent = "ValidationSuccess"
)

// Schema converts a rule description to an OpenAPI schema. Refinements have
// no OpenAPI equivalent and are listed in the x-refinements extension.
func Schema(d schema.Description) *openapi3.Schema {
	var s *openapi3.Schema
	switch d.Kind {
	case schema.KindString:
		s = openapi3.NewStringSchema()
		if d.MinLength != nil {
			s.WithMinLength(int64(*d.MinLength))
		}
		if d.MaxLength != nil {
			s.WithMaxLength(int64(*d.MaxLength))
		}
		if d.Pattern != "" {
			s.Pattern = schema.AnchorPattern(d.Pattern)
		}
		s.Format = d.Format
	case schema.KindNumber:
		if d.Integer {
			s = openapi3.NewInt64Schema()
		} else {
			s = openapi3.NewFloat64Schema()
		}
		if d.Minimum != nil {
			s.WithMin(*d.Minimum)
		}
		if d.Maximum != nil {
			s.WithMax(*d.Maximum)
		}
	case schema.KindBoolean:
		s = openapi3.NewBoolSchema()
	case schema.KindEnum:
		s = openapi3.NewStringSchema()
		for _, v := range d.Values {
			s.Enum = append(s.Enum, v)
		}
	case schema.KindDate:
		s = openapi3.NewDateTimeSchema()
		if d.MinDate != nil || d.MaxDate != nil {
			s.Extensions = map[string]any{}
			if d.MinDate != nil {
				s.Extensions["x-min-date"] = d.MinDate.Format(time.RFC3339)
			}
			if d.MaxDate != nil {
				s.Extensions["x-max-date"] = d.MaxDate.Format(time.RFC3339)
			}
		}
	case schema.KindObject:
		s = openapi3.NewObjectSchema()
		for _, f := range d.Fields {
			s.WithProperty(f.Name, Schema(f.Description))
			if f.Required {
				s.Required = append(s.Required, f.Name)
			}
		}
		if len(d.Refinements) > 0 {
			names := make([]string, len(d.Refinements))
			for i, r := range d.Refinements {
				names[i] = r.Name
			}
			s.Extensions = map[string]any{"x-refinements": names}
		}
	case schema.KindArray:
		s = openapi3.NewArraySchema()
		if d.Items != nil {
			s.WithItems(Schema(*d.Items))
		}
		if d.MinItems != nil {
			s.WithMinItems(int64(*d.MinItems))
		}
		if d.MaxItems != nil {
			s.WithMaxItems(int64(*d.MaxItems))
		}
	default:
		s = openapi3.NewSchema()
	}
	if d.Nullable {
		s.Nullable = true
	}
	if d.HasDefault {
		s.Default = jsonDefault(d.Default)
	}
	return s
}

// Entity returns the OpenAPI schema of a single rule.
func Entity(rule schema.Rule) *openapi3.Schema {
	return Schema(schema.Describe(rule))
}

// Document builds an API description of the validation service for every
// entity in src.
func Document(src Source, version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "formguard",
			Description: "Validation service for back-office entities.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				errorComponent:   openapi3.NewSchemaRef("", fieldErrorSchema()),
				failureComponent: openapi3.NewSchemaRef("", failureSchema()),
			},
		},
	}

	for _, name := range src.Names() {
		rule, err := src.Get(name)
		if err != nil {
			return nil, fmt.Errorf("openapi: %w", err)
		}
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", Entity(rule))
		doc.Paths.Set("/validate/"+name, &openapi3.PathItem{Post: validateOperation(name)})
	}

	doc.Paths.Set("/health", &openapi3.PathItem{Get: simpleOperation("health", "Service health")})
	doc.Paths.Set("/schemas", &openapi3.PathItem{Get: simpleOperation("listSchemas", "Registered entity names")})
	return doc, nil
}

func validateOperation(entity string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "validate_" + entity
	op.Summary = "Validate a " + entity + " payload"
	op.Tags = []string{"validation"}
	op.Parameters = openapi3.Parameters{
		{Value: openapi3.NewQueryParameter("strict").WithSchema(openapi3.NewBoolSchema()).
			WithDescription("Reject keys the entity does not declare")},
		{Value: openapi3.NewQueryParameter("halt").WithSchema(openapi3.NewBoolSchema()).
			WithDescription("Stop at the first failing cross-field rule")},
	}
	op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).
			WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+entity, nil)),
	}

	success := openapi3.NewObjectSchema().
		WithProperty("valid", openapi3.NewBoolSchema())
	success.Properties["value"] = openapi3.NewSchemaRef("#/components/schemas/"+entity, nil)

	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Payload is valid").WithJSONSchema(success),
		}),
		openapi3.WithStatus(http.StatusUnprocessableEntity, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Payload is invalid").
				WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+failureComponent, nil)),
		}),
		openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Body is not JSON"),
		}),
	)
	return op
}

func simpleOperation(id, description string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(description),
		}),
	)
	return op
}

func fieldErrorSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("fieldPath", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema())
	s.Required = []string{"fieldPath", "message"}
	return s
}

func failureSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("valid", openapi3.NewBoolSchema())
	s.Properties["errors"] = &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:  &openapi3.Types{openapi3.TypeArray},
		Items: openapi3.NewSchemaRef("#/components/schemas/"+errorComponent, nil),
	}}
	s.Required = []string{"valid", "errors"}
	return s
}

// jsonDefault renders defaults the way they appear on the wire.
func jsonDefault(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return v
}
