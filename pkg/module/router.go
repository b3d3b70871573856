package module

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Router is the server's top-level handler. The first path segment picks a
// mounted module ("/api/identify" goes to the "/api" module); anything else,
// such as /healthz and /readyz, falls through to a plain ServeMux.
type Router struct {
	modules  map[string]*Module
	fallback *http.ServeMux
}

func NewRouter() *Router {
	return &Router{
		modules:  make(map[string]*Module),
		fallback: http.NewServeMux(),
	}
}

// HandleNative registers pattern on the fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.fallback.HandleFunc(pattern, handler)
}

// Mount adds m under its prefix. Mounting the same prefix twice is an error.
func (r *Router) Mount(m *Module) error {
	if _, taken := r.modules[m.prefix]; taken {
		return fmt.Errorf("module prefix already mounted: %s", m.prefix)
	}
	r.modules[m.prefix] = m
	return nil
}

// Prefixes lists the mounted module prefixes in sorted order.
func (r *Router) Prefixes() []string {
	prefixes := make([]string, 0, len(r.modules))
	for p := range r.modules {
		prefixes = append(prefixes, p)
	}
	slices.Sort(prefixes)
	return prefixes
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	trimTrailingSlash(req)

	if m, ok := r.modules[firstSegment(req.URL.Path)]; ok {
		m.Serve(w, req)
		return
	}
	r.fallback.ServeHTTP(w, req)
}

// firstSegment returns "/api" for "/api/collection/page" and "/" for "/".
func firstSegment(path string) string {
	rest, _ := strings.CutPrefix(path, "/")
	seg, _, _ := strings.Cut(rest, "/")
	return "/" + seg
}

// trimTrailingSlash rewrites "/api/collection/" to "/api/collection" in place.
func trimTrailingSlash(req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}
}
