package endpoint

import (
	"fmt"
	"strings"

	"routemap/internal/errors"
)

// DefaultModuleID groups declarations that carry no owning module.
const DefaultModuleID = "default"

var springShortcuts = map[string]HTTPMethod{
	"GetMapping":    GET,
	"PostMapping":   POST,
	"PutMapping":    PUT,
	"DeleteMapping": DELETE,
	"PatchMapping":  PATCH,
}

var jaxrsVerbs = map[string]HTTPMethod{
	"GET":     GET,
	"POST":    POST,
	"PUT":     PUT,
	"DELETE":  DELETE,
	"PATCH":   PATCH,
	"HEAD":    HEAD,
	"OPTIONS": OPTIONS,
}

// clientAnnotations mark declarative HTTP clients. Their mappings describe
// calls to another service, not routes this module serves.
var clientAnnotations = []string{"FeignClient", "HttpExchange", "RegisterRestClient"}

// Resolver turns raw declarations into endpoints. It understands Spring
// (@RequestMapping and the verb shortcuts) and JAX-RS (@Path plus verb
// annotations). It is stateless and safe for concurrent use.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the first endpoint of a declaration. ok is false when the
// declaration carries no routing metadata.
func (r *Resolver) Resolve(d Declaration) (Endpoint, bool, error) {
	eps, err := r.ResolveAll(d)
	if err != nil || len(eps) == 0 {
		return Endpoint{}, false, err
	}
	return eps[0], true, nil
}

// ResolveAll returns one endpoint per mapped path. A declaration without
// routing metadata yields nil, nil. A mapping that cannot be interpreted
// yields a MALFORMED_DECLARATION error.
func (r *Resolver) ResolveAll(d Declaration) ([]Endpoint, error) {
	if d.Method == "" {
		return nil, malformed(d, "declaration has no method name")
	}
	if _, ok := d.FindClassAnnotation(clientAnnotations...); ok {
		return nil, nil
	}

	if eps, ok, err := r.resolveSpring(d); ok || err != nil {
		return eps, err
	}
	eps, _, err := r.resolveJAXRS(d)
	return eps, err
}

func (r *Resolver) resolveSpring(d Declaration) ([]Endpoint, bool, error) {
	var (
		mapping Annotation
		methods []HTTPMethod
		found   bool
	)
	for _, a := range d.MethodAnnotations {
		if m, ok := springShortcuts[a.Name]; ok {
			mapping, methods, found = a, []HTTPMethod{m}, true
			break
		}
		if a.Name == "RequestMapping" {
			mapping, found = a, true
			var err error
			if methods, err = requestMethods(d, a); err != nil {
				return nil, true, err
			}
			break
		}
	}
	if !found {
		return nil, false, nil
	}

	routes, err := literalPaths(d, mapping, "value", "path")
	if err != nil {
		return nil, true, err
	}
	prefixes := []string{""}
	if classMapping, ok := d.FindClassAnnotation("RequestMapping"); ok {
		if prefixes, err = literalPaths(d, classMapping, "value", "path"); err != nil {
			return nil, true, err
		}
		// Spring combines class and method verb conditions by union, so a
		// class-level method narrows handlers that declare none.
		classMethods, err := requestMethods(d, classMapping)
		if err != nil {
			return nil, true, err
		}
		methods = append(methods, classMethods...)
	}
	return build(d, prefixes, routes, methods), true, nil
}

// requestMethods reads the method attribute of a @RequestMapping.
func requestMethods(d Declaration, a Annotation) ([]HTTPMethod, error) {
	arg, ok := a.Arg("method")
	if !ok {
		return nil, nil
	}
	var methods []HTTPMethod
	for _, tok := range arg.Values {
		m, ok := ParseMethod(tok)
		if !ok {
			return nil, malformed(d, fmt.Sprintf("unknown request method %q", tok))
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func (r *Resolver) resolveJAXRS(d Declaration) ([]Endpoint, bool, error) {
	var methods []HTTPMethod
	for _, a := range d.MethodAnnotations {
		if m, ok := jaxrsVerbs[a.Name]; ok {
			methods = append(methods, m)
		}
	}
	pathAnn, hasPath := d.FindMethodAnnotation("Path")
	if len(methods) == 0 && !hasPath {
		return nil, false, nil
	}

	routes := []string{""}
	if hasPath {
		var err error
		if routes, err = literalPaths(d, pathAnn, "value"); err != nil {
			return nil, true, err
		}
	}
	prefixes := []string{""}
	if classPath, ok := d.FindClassAnnotation("Path"); ok {
		var err error
		if prefixes, err = literalPaths(d, classPath, "value"); err != nil {
			return nil, true, err
		}
	}
	return build(d, prefixes, routes, methods), true, nil
}

// literalPaths reads the path values of a mapping annotation. A mapping
// without a path argument maps to the empty route.
func literalPaths(d Declaration, a Annotation, keys ...string) ([]string, error) {
	arg, ok := a.Arg(keys...)
	if !ok || len(arg.Values) == 0 {
		return []string{""}, nil
	}
	if !arg.Literal {
		return nil, malformed(d, fmt.Sprintf("@%s path is not a string literal", a.Name))
	}
	return arg.Values, nil
}

func build(d Declaration, prefixes, routes []string, methods []HTTPMethod) []Endpoint {
	moduleID, moduleName := d.ModuleID, d.ModuleName
	if moduleID == "" {
		moduleID = DefaultModuleID
	}
	if moduleName == "" {
		moduleName = moduleID
	}
	methods = SortMethods(methods)

	seen := make(map[string]bool)
	var out []Endpoint
	for _, prefix := range prefixes {
		for _, route := range routes {
			p := JoinPath(prefix, route)
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, Endpoint{
				Methods:    methods,
				Path:       p,
				ModuleID:   moduleID,
				ModuleName: moduleName,
				Handler:    d.Handler(),
				SourceRef:  d.SourceRef,
			})
		}
	}
	return out
}

func malformed(d Declaration, reason string) error {
	where := strings.TrimSpace(fmt.Sprintf("%s:%d %s", d.File, d.Line, d.Handler()))
	return errors.New(errors.MalformedDeclaration, reason, nil, nil).WithDetails(map[string]string{
		"declaration": where,
	})
}
