// Package openapi merges OpenAPI documents so the auth subsystem's generated
// schema can be folded into the main API schema before it is served.
//
// Import Path: novostudio.tech/foundation/internal/pkg/openapi
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// MergeDocuments structurally merges source into target and returns target.
// `openapi` and `info` always come from target; every other section is only
// touched when the source actually carries it.
func MergeDocuments(target, source *openapi3.T) *openapi3.T {
	if target == nil || source == nil {
		return target
	}

	mergePaths(target, source)
	mergeComponents(target, source)
	mergeTags(target, source)
	mergeServers(target, source)

	// Security requirements are OR-semantics alternatives; concatenate
	// without deduplication.
	if len(source.Security) > 0 {
		target.Security = append(target.Security, source.Security...)
	}

	if source.ExternalDocs != nil {
		target.ExternalDocs = source.ExternalDocs
	}

	return target
}

func mergePaths(target, source *openapi3.T) {
	if source.Paths == nil || source.Paths.Len() == 0 {
		return
	}
	if target.Paths == nil {
		target.Paths = openapi3.NewPaths()
	}

	for path, srcItem := range source.Paths.Map() {
		dstItem := target.Paths.Value(path)
		if dstItem == nil {
			target.Paths.Set(path, srcItem)
			continue
		}
		mergePathItem(dstItem, srcItem)
	}
}

// mergePathItem folds srcItem into dstItem: source operations override the
// same method, other methods on dstItem are preserved.
func mergePathItem(dst, src *openapi3.PathItem) {
	for method, op := range src.Operations() {
		dst.SetOperation(method, op)
	}

	dst.Parameters = mergeParameters(dst.Parameters, src.Parameters)

	if src.Summary != "" {
		dst.Summary = src.Summary
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Ref != "" {
		dst.Ref = src.Ref
	}
	if len(src.Servers) > 0 {
		dst.Servers = src.Servers
	}
	for k, v := range src.Extensions {
		if dst.Extensions == nil {
			dst.Extensions = map[string]any{}
		}
		dst.Extensions[k] = v
	}
}

// mergeParameters unions two parameter lists, deduplicating by $ref or by
// the name:in pair. Source entries win on collision.
func mergeParameters(dst, src openapi3.Parameters) openapi3.Parameters {
	if len(src) == 0 {
		return dst
	}

	key := func(p *openapi3.ParameterRef) string {
		if p == nil {
			return ""
		}
		if p.Ref != "" {
			return "$ref:" + p.Ref
		}
		if p.Value != nil {
			return p.Value.Name + ":" + p.Value.In
		}
		return ""
	}

	merged := make(openapi3.Parameters, 0, len(dst)+len(src))
	seen := make(map[string]int)
	for _, p := range dst {
		seen[key(p)] = len(merged)
		merged = append(merged, p)
	}
	for _, p := range src {
		k := key(p)
		if idx, ok := seen[k]; ok {
			merged[idx] = p
			continue
		}
		seen[k] = len(merged)
		merged = append(merged, p)
	}
	return merged
}

func mergeComponents(target, source *openapi3.T) {
	src := source.Components
	if src == nil {
		return
	}
	if target.Components == nil {
		target.Components = &openapi3.Components{}
	}
	dst := target.Components

	if len(src.Schemas) > 0 {
		if dst.Schemas == nil {
			dst.Schemas = openapi3.Schemas{}
		}
		for k, v := range src.Schemas {
			dst.Schemas[k] = v
		}
	}
	if len(src.Parameters) > 0 {
		if dst.Parameters == nil {
			dst.Parameters = openapi3.ParametersMap{}
		}
		for k, v := range src.Parameters {
			dst.Parameters[k] = v
		}
	}
	if len(src.Headers) > 0 {
		if dst.Headers == nil {
			dst.Headers = openapi3.Headers{}
		}
		for k, v := range src.Headers {
			dst.Headers[k] = v
		}
	}
	if len(src.RequestBodies) > 0 {
		if dst.RequestBodies == nil {
			dst.RequestBodies = openapi3.RequestBodies{}
		}
		for k, v := range src.RequestBodies {
			dst.RequestBodies[k] = v
		}
	}
	if len(src.Responses) > 0 {
		if dst.Responses == nil {
			dst.Responses = openapi3.ResponseBodies{}
		}
		for k, v := range src.Responses {
			dst.Responses[k] = v
		}
	}
	if len(src.SecuritySchemes) > 0 {
		if dst.SecuritySchemes == nil {
			dst.SecuritySchemes = openapi3.SecuritySchemes{}
		}
		for k, v := range src.SecuritySchemes {
			dst.SecuritySchemes[k] = v
		}
	}
	if len(src.Examples) > 0 {
		if dst.Examples == nil {
			dst.Examples = openapi3.Examples{}
		}
		for k, v := range src.Examples {
			dst.Examples[k] = v
		}
	}
	if len(src.Links) > 0 {
		if dst.Links == nil {
			dst.Links = openapi3.Links{}
		}
		for k, v := range src.Links {
			dst.Links[k] = v
		}
	}
	if len(src.Callbacks) > 0 {
		if dst.Callbacks == nil {
			dst.Callbacks = openapi3.Callbacks{}
		}
		for k, v := range src.Callbacks {
			dst.Callbacks[k] = v
		}
	}

	if componentsEmpty(dst) {
		target.Components = nil
	}
}

func componentsEmpty(c *openapi3.Components) bool {
	return len(c.Schemas) == 0 &&
		len(c.Parameters) == 0 &&
		len(c.Headers) == 0 &&
		len(c.RequestBodies) == 0 &&
		len(c.Responses) == 0 &&
		len(c.SecuritySchemes) == 0 &&
		len(c.Examples) == 0 &&
		len(c.Links) == 0 &&
		len(c.Callbacks) == 0 &&
		len(c.Extensions) == 0
}

// mergeTags dedupes by name. A source tag only overrides the description
// when it actually has one; other tag properties take source precedence.
func mergeTags(target, source *openapi3.T) {
	if len(source.Tags) == 0 {
		return
	}

	index := make(map[string]*openapi3.Tag, len(target.Tags))
	for _, t := range target.Tags {
		index[t.Name] = t
	}

	for _, srcTag := range source.Tags {
		dstTag, ok := index[srcTag.Name]
		if !ok {
			target.Tags = append(target.Tags, srcTag)
			index[srcTag.Name] = srcTag
			continue
		}
		if srcTag.Description != "" {
			dstTag.Description = srcTag.Description
		}
		if srcTag.ExternalDocs != nil {
			dstTag.ExternalDocs = srcTag.ExternalDocs
		}
		for k, v := range srcTag.Extensions {
			if dstTag.Extensions == nil {
				dstTag.Extensions = map[string]any{}
			}
			dstTag.Extensions[k] = v
		}
	}
}

// mergeServers dedupes by URL, source wins on collision.
func mergeServers(target, source *openapi3.T) {
	if len(source.Servers) == 0 {
		return
	}

	index := make(map[string]int, len(target.Servers))
	for i, s := range target.Servers {
		index[s.URL] = i
	}
	for _, s := range source.Servers {
		if i, ok := index[s.URL]; ok {
			target.Servers[i] = s
			continue
		}
		index[s.URL] = len(target.Servers)
		target.Servers = append(target.Servers, s)
	}
}
