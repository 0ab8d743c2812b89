package artifactregistry

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/artifactregistry/apiv1/artifactregistrypb"
	"google.golang.org/api/iterator"

	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

type arBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates an Artifact Registry adapter backed by the
// real client.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&arBackend{reg: reg})
}

func locationPath(project, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s", project, location)
}

func shortName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}

func (b *arBackend) ListRepositories(ctx context.Context, project, location string) ([]Repository, error) {
	client, err := b.reg.ArtifactRegistry(ctx)
	if err != nil {
		return nil, err
	}

	var repos []Repository
	it := client.ListRepositories(ctx, &artifactregistrypb.ListRepositoriesRequest{
		Parent: locationPath(project, location),
	})
	for {
		repo, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing repositories in %s: %w", location, err)
		}
		repos = append(repos, repositoryFromProto(repo))
	}
	return repos, nil
}

func (b *arBackend) CreateRepository(ctx context.Context, project, location, name, format, description string) (*Repository, error) {
	client, err := b.reg.ArtifactRegistry(ctx)
	if err != nil {
		return nil, err
	}

	parent := locationPath(project, location)
	op, err := client.CreateRepository(ctx, &artifactregistrypb.CreateRepositoryRequest{
		Parent:       parent,
		RepositoryId: name,
		Repository: &artifactregistrypb.Repository{
			Name:        parent + "/repositories/" + name,
			Format:      artifactregistrypb.Repository_Format(artifactregistrypb.Repository_Format_value[format]),
			Description: description,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating repository %s: %w", name, err)
	}
	created, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for repository %s: %w", name, err)
	}
	repo := repositoryFromProto(created)
	return &repo, nil
}

func repositoryFromProto(repo *artifactregistrypb.Repository) Repository {
	out := Repository{
		Name:        shortName(repo.GetName()),
		Format:      repo.GetFormat().String(),
		Description: repo.GetDescription(),
		KMSKeyName:  repo.GetKmsKeyName(),
		Labels:      repo.GetLabels(),
	}
	if t := repo.GetCreateTime(); t != nil {
		out.Created = t.AsTime()
	}
	if t := repo.GetUpdateTime(); t != nil {
		out.Updated = t.AsTime()
	}
	return out
}
