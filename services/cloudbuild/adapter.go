// Package cloudbuild exposes Cloud Build executions and triggers as
// dispatchable operations.
package cloudbuild

import (
	"context"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// Build is the outward shape of a build execution.
type Build struct {
	ID            string
	Status        string
	CommitSHA     string
	Created       time.Time
	LogsURL       string
	Substitutions map[string]string
}

// Trigger is the outward shape of a build trigger.
type Trigger struct {
	ID          string
	Name        string
	Description string
	RepoName    string
	BranchName  string
	Disabled    bool
}

// BuildSpec describes a build to submit. Steps follow the Cloud Build
// step format: each entry names an image and its arguments.
type BuildSpec struct {
	Steps         []BuildStep
	Images        []string
	Substitutions map[string]string
	TimeoutSecs   int64
}

// BuildStep is one container execution within a build.
type BuildStep struct {
	Name string
	Args []string
	Dir  string
}

// Backend is the slice of Cloud Build the adapter needs.
type Backend interface {
	ListBuilds(ctx context.Context, project, filter string, pageSize int) ([]Build, error)
	ListTriggers(ctx context.Context, project string) ([]Trigger, error)
	SubmitBuild(ctx context.Context, project string, spec BuildSpec) (*Build, error)
}

// Adapter wires Cloud Build operations into the dispatch registry.
type Adapter struct {
	backend Backend
}

// New creates a Cloud Build adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "cloudbuild"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	return []operation.Operation{
		{
			Name:        "list_builds",
			Description: "List Cloud Build executions, optionally filtered",
			Fields: []envelope.Field{
				{Name: "project_id", Source: envelope.SourceProject},
				{Name: "filter"},
			},
			ReadOnly: true,
			Handler:  a.listBuilds,
		},
		{
			Name:        "list_triggers",
			Description: "List Cloud Build triggers in a project",
			Fields: []envelope.Field{
				{Name: "project_id", Source: envelope.SourceProject},
			},
			ReadOnly: true,
			Handler:  a.listTriggers,
		},
		{
			Name:        "trigger_build",
			Description: "Submit a Cloud Build execution from a list of build steps",
			Fields: []envelope.Field{
				{Name: "project_id", Source: envelope.SourceProject},
				{Name: "steps", Required: true},
			},
			Handler: a.triggerBuild,
		},
	}
}

func buildPayload(b Build) map[string]any {
	return map[string]any{
		"id":            b.ID,
		"status":        b.Status,
		"source":        b.CommitSHA,
		"create_time":   envelope.Timestamp(b.Created),
		"logs_url":      b.LogsURL,
		"substitutions": envelope.Labels(b.Substitutions),
	}
}

func (a *Adapter) listBuilds(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	filter, _ := p.String("filter")
	size64, _ := p.Int("page_size")
	size := int(size64)
	if size <= 0 {
		size = 100
	}

	builds, err := a.backend.ListBuilds(ctx, project, filter, size)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(builds))
	for _, b := range builds {
		items = append(items, buildPayload(b))
	}
	return map[string]any{"builds": items, "count": len(items)}, nil
}

func (a *Adapter) listTriggers(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")

	triggers, err := a.backend.ListTriggers(ctx, project)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(triggers))
	for _, t := range triggers {
		items = append(items, map[string]any{
			"id":          t.ID,
			"name":        t.Name,
			"description": t.Description,
			"repo_name":   t.RepoName,
			"branch_name": t.BranchName,
			"disabled":    t.Disabled,
		})
	}
	return map[string]any{"triggers": items, "count": len(items)}, nil
}

func (a *Adapter) triggerBuild(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")

	spec, err := buildSpecFromParams(p)
	if err != nil {
		return nil, err
	}

	b, err := a.backend.SubmitBuild(ctx, project, *spec)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"build_id":     b.ID,
		"build_status": b.Status,
		"logs_url":     b.LogsURL,
	}, nil
}

// buildSpecFromParams decodes the steps parameter, a list of
// {name, args, dir} objects, into a BuildSpec.
func buildSpecFromParams(p envelope.Params) (*BuildSpec, error) {
	raw, ok := p["steps"].([]any)
	if !ok || len(raw) == 0 {
		return nil, gcperr.New(gcperr.KindMissingParameter, "steps must be a non-empty list of build steps")
	}

	spec := &BuildSpec{Substitutions: p.StringMap("substitutions")}
	if secs, ok := p.Int("timeout_seconds"); ok && secs > 0 {
		spec.TimeoutSecs = secs
	}
	if images, ok := p["images"].([]any); ok {
		for _, s := range images {
			if img, ok := s.(string); ok {
				spec.Images = append(spec.Images, img)
			}
		}
	}
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, gcperr.Newf(gcperr.KindMissingParameter, "steps[%d] must be an object", i)
		}
		step := BuildStep{
			Name: envelope.Params(m).StringOr("name", ""),
			Dir:  envelope.Params(m).StringOr("dir", ""),
		}
		if step.Name == "" {
			return nil, gcperr.Newf(gcperr.KindMissingParameter, "steps[%d] is missing the builder image name", i)
		}
		if args, ok := m["args"].([]any); ok {
			for _, arg := range args {
				if s, ok := arg.(string); ok {
					step.Args = append(step.Args, s)
				}
			}
		}
		spec.Steps = append(spec.Steps, step)
	}
	return spec, nil
}
