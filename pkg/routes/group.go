package routes

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/glimpse/pkg/openapi"
)

// Group organizes routes under a common prefix with shared tags.
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

// Document adds every route that carries an OpenAPI operation to spec.
// Operations without tags inherit the group's tags.
func Document(spec *openapi.Spec, groups ...Group) {
	for _, group := range groups {
		documentGroup(spec, "", nil, group)
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

func documentGroup(spec *openapi.Spec, parentPrefix string, parentTags []string, group Group) {
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
		spec.AddOperation(specPath(fullPrefix+route.Pattern), route.Method, &op)
	}
	for _, child := range group.Children {
		documentGroup(spec, fullPrefix, tags, child)
	}
}

// specPath converts a ServeMux pattern to an OpenAPI path template.
func specPath(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "...}", "}")
	pattern = strings.ReplaceAll(pattern, "{$}", "")
	if pattern == "" {
		return "/"
	}
	return pattern
}
