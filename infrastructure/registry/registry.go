// Package registry owns every backend client handle in the process. A
// client is constructed lazily on first request for its service id, bound
// to the resolved credentials and the Default Context, and cached for the
// process lifetime. Construction is single-flight per service id and
// failures are never cached. Adapters borrow handles; they never construct
// connectors themselves.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"

	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/infrastructure/auth"
	"github.com/enesbol/gcp-mcp/infrastructure/config"
)

// Service identifies one of the supported backend services.
type Service string

const (
	ServiceStorage          Service = "storage"
	ServiceBigQuery         Service = "bigquery"
	ServiceRun              Service = "run"
	ServiceBuild            Service = "cloudbuild"
	ServiceCompute          Service = "compute"
	ServiceMonitoring       Service = "monitoring"
	ServiceLogging          Service = "logging"
	ServiceArtifactRegistry Service = "artifactregistry"
)

// Handle is a constructed, credential-bound connector for one service.
// Handles are owned by the registry and retained for the process lifetime.
type Handle struct {
	Service   Service
	CreatedAt time.Time
	Project   string
	Region    string

	client any
	closer func() error
}

// buildFunc constructs the concrete client set for one service, bound to
// the given credential options. It returns the client value and an
// optional closer.
type buildFunc func(ctx context.Context, r *Registry, opts []option.ClientOption) (any, func() error, error)

// Registry is the process-wide client cache. Construct with New.
type Registry struct {
	cfg      *config.Context
	resolver *auth.Resolver

	group singleflight.Group

	mu      sync.RWMutex
	handles map[Service]*Handle
}

// New creates a registry bound to the Default Context and credential
// resolver.
func New(cfg *config.Context, resolver *auth.Resolver) *Registry {
	return &Registry{
		cfg:      cfg,
		resolver: resolver,
		handles:  make(map[Service]*Handle),
	}
}

// Project returns the default project id, falling back to the project
// carried by already-resolved credentials when the configuration omits
// one.
func (r *Registry) Project() (string, error) {
	if r.cfg.HasProject() {
		return r.cfg.Project()
	}
	if h, ok := r.resolver.Peek(); ok && h.ProjectID() != "" {
		return h.ProjectID(), nil
	}
	return r.cfg.Project()
}

// Region returns the default region.
func (r *Registry) Region() string {
	return r.cfg.Region()
}

// Timeout returns the default per-operation timeout.
func (r *Registry) Timeout() time.Duration {
	return r.cfg.Timeout()
}

// handle returns the cached handle for svc, constructing it on first use.
// Concurrent first calls for the same service share one construction;
// calls for different services proceed independently.
func (r *Registry) handle(ctx context.Context, svc Service, build buildFunc) (*Handle, error) {
	r.mu.RLock()
	h, ok := r.handles[svc]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := r.group.Do(string(svc), func() (any, error) {
		// Re-check under the flight: a previous flight may have filled
		// the cache between the read above and now.
		r.mu.RLock()
		h, ok := r.handles[svc]
		r.mu.RUnlock()
		if ok {
			return h, nil
		}

		cred, err := r.resolver.Resolve(ctx)
		if err != nil {
			// Credential failures keep their own kind.
			return nil, err
		}

		client, closer, err := build(ctx, r, cred.ClientOptions())
		if err != nil {
			var classified *gcperr.Error
			if errors.As(err, &classified) {
				return nil, err
			}
			return nil, gcperr.Wrap(gcperr.KindClientConstruction,
				"constructing "+string(svc)+" client", err)
		}

		h = &Handle{
			Service:   svc,
			CreatedAt: time.Now(),
			Region:    r.cfg.Region(),
			client:    client,
			closer:    closer,
		}
		if project, err := r.Project(); err == nil {
			h.Project = project
		}

		r.mu.Lock()
		r.handles[svc] = h
		r.mu.Unlock()
		return h, nil
	})
	if err != nil {
		// Nothing is cached on failure; the next call retries from scratch.
		return nil, err
	}
	return v.(*Handle), nil
}

// Handles returns the currently constructed handles, for introspection.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

// Close releases every constructed client. The registry is not usable
// afterwards; intended for process shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for svc, h := range r.handles {
		if h.closer != nil {
			if err := h.closer(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(r.handles, svc)
	}
	return firstErr
}
