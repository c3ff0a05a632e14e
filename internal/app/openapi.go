package app

import (
	"embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"novostudio.tech/foundation/internal/admin"
	openapiutil "novostudio.tech/foundation/internal/pkg/openapi"
)

//go:embed docs/base.yaml docs/auth.yaml
var openapiDocs embed.FS

// buildOpenAPIDocument assembles the served API document: the static base
// and auth documents merged with paths generated from the discovered admin
// controllers.
func buildOpenAPIDocument(discovery *admin.Discovery) ([]byte, error) {
	loader := openapi3.NewLoader()

	load := func(name string) (*openapi3.T, error) {
		data, err := openapiDocs.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		doc, err := loader.LoadFromData(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return doc, nil
	}

	base, err := load("docs/base.yaml")
	if err != nil {
		return nil, err
	}
	authDoc, err := load("docs/auth.yaml")
	if err != nil {
		return nil, err
	}

	merged := openapiutil.MergeDocuments(base, authDoc)
	merged = openapiutil.MergeDocuments(merged, adminDocument(discovery))

	data, err := merged.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}
	return data, nil
}

// adminDocument generates CRUD paths for every discovered admin resource.
func adminDocument(discovery *admin.Discovery) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: "Foundation Admin", Version: "1.0.0"},
		Paths:   openapi3.NewPaths(),
	}

	for _, c := range discovery.Controllers() {
		resource := c.Metadata.Resource
		tag := c.Metadata.Options.Tag
		if tag == "" {
			tag = resource
		}
		doc.Tags = append(doc.Tags, &openapi3.Tag{
			Name:        tag,
			Description: fmt.Sprintf("Generated CRUD panel for %s.", resource),
		})

		doc.Paths.Set("/admin/"+resource, &openapi3.PathItem{
			Get:  adminOperation(tag, "List "+resource, listParameters()...),
			Post: adminOperation(tag, "Create one "+resource+" record"),
		})
		doc.Paths.Set("/admin/"+resource+"/{id}", &openapi3.PathItem{
			Get:    adminOperation(tag, "Get one "+resource+" record", idParameter()),
			Put:    adminOperation(tag, "Update one "+resource+" record", idParameter()),
			Delete: adminOperation(tag, "Delete one "+resource+" record", idParameter()),
		})
	}
	return doc
}

func adminOperation(tag, summary string, params ...*openapi3.ParameterRef) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Tags = []string{tag}
	op.Summary = summary
	op.Security = openapi3.NewSecurityRequirements().
		With(openapi3.NewSecurityRequirement().Authenticate("bearerAuth"))
	op.Responses = openapi3.NewResponses()
	op.Parameters = params
	return op
}

func listParameters() []*openapi3.ParameterRef {
	query := func(name string, schema *openapi3.Schema) *openapi3.ParameterRef {
		p := openapi3.NewQueryParameter(name)
		p.Schema = schema.NewRef()
		return &openapi3.ParameterRef{Value: p}
	}
	filterSchema := openapi3.NewStringSchema()
	filterSchema.Description = "JSON object of column/scalar pairs, e.g. {\"active\":true}."
	return []*openapi3.ParameterRef{
		query("page", openapi3.NewIntegerSchema().WithMin(1).WithDefault(admin.DefaultPage)),
		query("perPage", openapi3.NewIntegerSchema().WithMin(1).WithMax(admin.MaxPerPage).WithDefault(admin.DefaultPerPage)),
		query("sort", openapi3.NewStringSchema()),
		query("order", openapi3.NewStringSchema().WithEnum("ASC", "DESC").WithDefault("ASC")),
		query("filter", filterSchema),
	}
}

func idParameter() *openapi3.ParameterRef {
	p := openapi3.NewPathParameter("id")
	p.Schema = openapi3.NewStringSchema().NewRef()
	return &openapi3.ParameterRef{Value: p}
}
