// Package artifactregistry exposes Artifact Registry repository
// operations.
package artifactregistry

import (
	"context"
	"strings"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

// Formats accepted for new repositories.
var validFormats = map[string]bool{
	"DOCKER": true,
	"MAVEN":  true,
	"NPM":    true,
	"PYTHON": true,
	"APT":    true,
	"YUM":    true,
	"GO":     true,
}

// Repository is the outward shape of a repository.
type Repository struct {
	Name        string
	Format      string
	Description string
	KMSKeyName  string
	Labels      map[string]string
	Created     time.Time
	Updated     time.Time
}

// Backend is the slice of Artifact Registry the adapter needs.
type Backend interface {
	ListRepositories(ctx context.Context, project, location string) ([]Repository, error)
	CreateRepository(ctx context.Context, project, location, name, format, description string) (*Repository, error)
}

// Adapter wires Artifact Registry operations into the dispatch registry.
type Adapter struct {
	backend Backend
}

// New creates an Artifact Registry adapter over the given backend.
func New(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "artifactregistry"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	locationFields := []envelope.Field{
		{Name: "project_id", Source: envelope.SourceProject},
		{Name: "location", Source: envelope.SourceRegion},
	}
	return []operation.Operation{
		{
			Name:        "list_repositories",
			Description: "List Artifact Registry repositories in a location",
			Fields:      locationFields,
			ReadOnly:    true,
			Handler:     a.listRepositories,
		},
		{
			Name:        "create_repository",
			Description: "Create an Artifact Registry repository (DOCKER, MAVEN, NPM, PYTHON, APT, YUM or GO)",
			Fields: append([]envelope.Field{
				{Name: "repository_name", Required: true},
				{Name: "format", Required: true},
			}, locationFields...),
			Handler: a.createRepository,
		},
	}
}

func repositoryPayload(r Repository) map[string]any {
	return map[string]any{
		"name":         r.Name,
		"format":       r.Format,
		"description":  r.Description,
		"kms_key_name": r.KMSKeyName,
		"labels":       envelope.Labels(r.Labels),
		"create_time":  envelope.Timestamp(r.Created),
		"update_time":  envelope.Timestamp(r.Updated),
	}
}

func (a *Adapter) listRepositories(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	location, _ := p.String("location")

	repos, err := a.backend.ListRepositories(ctx, project, location)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(repos))
	for _, r := range repos {
		items = append(items, repositoryPayload(r))
	}
	return map[string]any{"repositories": items, "count": len(items)}, nil
}

func (a *Adapter) createRepository(ctx context.Context, p envelope.Params) (map[string]any, error) {
	project, _ := p.String("project_id")
	location, _ := p.String("location")
	name, _ := p.String("repository_name")
	format := strings.ToUpper(p.StringOr("format", ""))
	description := p.StringOr("description", "")

	if !validFormats[format] {
		return nil, gcperr.Newf(gcperr.KindMissingParameter,
			"invalid format %q: must be one of DOCKER, MAVEN, NPM, PYTHON, APT, YUM, GO", format)
	}

	r, err := a.backend.CreateRepository(ctx, project, location, name, format, description)
	if err != nil {
		return nil, err
	}
	return repositoryPayload(*r), nil
}
