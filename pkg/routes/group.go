// Package routes declares HTTP routes as nested prefix groups and registers
// them on a ServeMux.
package routes

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/specimen/pkg/openapi"
)

// Group organizes routes under a common prefix. Tags label the group's
// operations in the API description.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, "", group)
	}
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		pattern := route.Method + " " + fullPrefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	for _, child := range group.Children {
		registerGroup(mux, fullPrefix, child)
	}
}

// Describe adds every documented route in groups to spec. Routes without an
// OpenAPI operation are skipped.
func Describe(spec *openapi.Spec, groups ...Group) {
	for _, group := range groups {
		describeGroup(spec, "", nil, group)
	}
}

func describeGroup(spec *openapi.Spec, parentPrefix string, parentTags []string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	tags := group.Tags
	if len(tags) == 0 {
		tags = parentTags
	}

	for _, route := range group.Routes {
		if route.OpenAPI == nil {
			continue
		}
		op := *route.OpenAPI
		if len(op.Tags) == 0 {
			op.Tags = tags
		}
		spec.AddOperation(OpenAPIPath(fullPrefix+route.Pattern), route.Method, &op)
	}
	for _, child := range group.Children {
		describeGroup(spec, fullPrefix, tags, child)
	}
}

// OpenAPIPath converts a ServeMux pattern path to OpenAPI form: the {$}
// anchor is dropped and {name...} wildcards become {name}.
func OpenAPIPath(pattern string) string {
	p := strings.ReplaceAll(pattern, "{$}", "")
	p = strings.ReplaceAll(p, "...}", "}")
	if p == "" {
		return "/"
	}
	return p
}
