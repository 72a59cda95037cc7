package services

import (
	"github.com/mukhil0212/Sentinel-RAG/internal/planner"
	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
	"github.com/mukhil0212/Sentinel-RAG/internal/scan"
	"github.com/mukhil0212/Sentinel-RAG/internal/session"
	"github.com/mukhil0212/Sentinel-RAG/internal/store"
)

// Registry provides access to all sentineld services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Sandboxes() *sandbox.Manager
	Pipeline() *scan.Pipeline
	Planner() planner.Planner
	Sessions() session.Service
	Store() store.Store
}

// Options configures the registry with service instances.
type Options struct {
	Sandboxes *sandbox.Manager
	Pipeline  *scan.Pipeline
	Planner   planner.Planner
	Sessions  session.Service
	Store     store.Store
}

// registry is the concrete implementation of Registry.
type registry struct {
	sandboxes *sandbox.Manager
	pipeline  *scan.Pipeline
	planner   planner.Planner
	sessions  session.Service
	store     store.Store
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		sandboxes: opts.Sandboxes,
		pipeline:  opts.Pipeline,
		planner:   opts.Planner,
		sessions:  opts.Sessions,
		store:     opts.Store,
	}
}

func (r *registry) Sandboxes() *sandbox.Manager { return r.sandboxes }
func (r *registry) Pipeline() *scan.Pipeline    { return r.pipeline }
func (r *registry) Planner() planner.Planner    { return r.planner }
func (r *registry) Sessions() session.Service   { return r.sessions }
func (r *registry) Store() store.Store          { return r.store }
