// Package router assembles the gin engine and the versioned API routes.
package router

import (
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on a router group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registrar. Call it once, after all Register calls.
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Route is one entry of a route table
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// RouteGroup is a route table mounted under Prefix. Middleware applies to
// its routes and to every nested group.
type RouteGroup struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
	Groups     []*RouteGroup
}

func (g *RouteGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.Prefix, g.Middleware...)
	for _, r := range g.Routes {
		group.Handle(r.Method, r.Path, r.Handler)
	}
	for _, sub := range g.Groups {
		sub.RegisterRoutes(group)
	}
}

// List returns "METHOD /path" for every route, relative to the group's parent
func (g *RouteGroup) List() []string {
	return g.list("/")
}

func (g *RouteGroup) list(parent string) []string {
	base := path.Join(parent, g.Prefix)
	var out []string
	for _, r := range g.Routes {
		out = append(out, r.Method+" "+path.Join(base, r.Path))
	}
	for _, sub := range g.Groups {
		out = append(out, sub.list(base)...)
	}
	return out
}
