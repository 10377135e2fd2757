package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/interfaces/http/middleware"
)

// Public marks a route that needs no authenticated caller
const Public identity.Capability = ""

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the versioned API group only
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// BasePath is the versioned prefix every registrar is mounted under
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// RouteInfo describes one declared route and the capability guarding it
type RouteInfo struct {
	Method     string
	Path       string
	Capability identity.Capability
}

// DomainGroup creates a route group for a specific domain. Every route names
// the capability a caller needs; Public routes skip the check.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method     string
	path       string
	capability identity.Capability
	handlers   []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
	}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, capability identity.Capability, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{
		method:     method,
		path:       path,
		capability: capability,
		handlers:   handlers,
	})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, capability identity.Capability, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, capability, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, capability identity.Capability, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, capability, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, capability identity.Capability, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, capability, handlers)
}

// PATCH registers a PATCH route
func (dg *DomainGroup) PATCH(path string, capability identity.Capability, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, capability, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, capability identity.Capability, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, capability, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.routes {
		chain := route.handlers
		if route.capability != Public {
			chain = append([]gin.HandlerFunc{middleware.RequireCapability(route.capability)}, route.handlers...)
		}
		group.Handle(route.method, route.path, chain...)
	}

	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Routes lists every route of the group and its subgroups, relative to the
// mount point of the group.
func (dg *DomainGroup) Routes() []RouteInfo {
	return dg.collect("")
}

func (dg *DomainGroup) collect(base string) []RouteInfo {
	prefix := path.Join("/", base, dg.prefix)
	infos := make([]RouteInfo, 0, len(dg.routes))
	for _, route := range dg.routes {
		full := prefix
		if route.path != "" && route.path != "/" {
			full = path.Join(prefix, route.path)
		}
		infos = append(infos, RouteInfo{Method: route.method, Path: full, Capability: route.capability})
	}
	for _, subgroup := range dg.subgroups {
		infos = append(infos, subgroup.collect(prefix)...)
	}
	return infos
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}
