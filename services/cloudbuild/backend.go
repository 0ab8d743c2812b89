package cloudbuild

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/cloudbuild/apiv1/v2/cloudbuildpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/enesbol/gcp-mcp/infrastructure/registry"
)

type buildBackend struct {
	reg *registry.Registry
}

// NewWithRegistry creates a Cloud Build adapter backed by the real client.
func NewWithRegistry(reg *registry.Registry) *Adapter {
	return New(&buildBackend{reg: reg})
}

func (b *buildBackend) ListBuilds(ctx context.Context, project, filter string, pageSize int) ([]Build, error) {
	client, err := b.reg.Build(ctx)
	if err != nil {
		return nil, err
	}

	var builds []Build
	it := client.ListBuilds(ctx, &cloudbuildpb.ListBuildsRequest{
		ProjectId: project,
		Filter:    filter,
		PageSize:  int32(pageSize),
	})
	for len(builds) < pageSize {
		build, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing builds: %w", err)
		}
		builds = append(builds, buildFromProto(build))
	}
	return builds, nil
}

func (b *buildBackend) ListTriggers(ctx context.Context, project string) ([]Trigger, error) {
	client, err := b.reg.Build(ctx)
	if err != nil {
		return nil, err
	}

	var triggers []Trigger
	it := client.ListBuildTriggers(ctx, &cloudbuildpb.ListBuildTriggersRequest{
		ProjectId: project,
	})
	for {
		trigger, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing build triggers: %w", err)
		}
		triggers = append(triggers, Trigger{
			ID:          trigger.GetId(),
			Name:        trigger.GetName(),
			Description: trigger.GetDescription(),
			RepoName:    trigger.GetTriggerTemplate().GetRepoName(),
			BranchName:  trigger.GetTriggerTemplate().GetBranchName(),
			Disabled:    trigger.GetDisabled(),
		})
	}
	return triggers, nil
}

func (b *buildBackend) SubmitBuild(ctx context.Context, project string, spec BuildSpec) (*Build, error) {
	client, err := b.reg.Build(ctx)
	if err != nil {
		return nil, err
	}

	proto := &cloudbuildpb.Build{
		Images:        spec.Images,
		Substitutions: spec.Substitutions,
	}
	for _, step := range spec.Steps {
		proto.Steps = append(proto.Steps, &cloudbuildpb.BuildStep{
			Name: step.Name,
			Args: step.Args,
			Dir:  step.Dir,
		})
	}
	if spec.TimeoutSecs > 0 {
		proto.Timeout = durationpb.New(time.Duration(spec.TimeoutSecs) * time.Second)
	}

	op, err := client.CreateBuild(ctx, &cloudbuildpb.CreateBuildRequest{
		ProjectId: project,
		Build:     proto,
	})
	if err != nil {
		return nil, fmt.Errorf("submitting build: %w", err)
	}
	result, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for build: %w", err)
	}
	out := buildFromProto(result)
	return &out, nil
}

func buildFromProto(build *cloudbuildpb.Build) Build {
	out := Build{
		ID:            build.GetId(),
		Status:        build.GetStatus().String(),
		CommitSHA:     build.GetSource().GetRepoSource().GetCommitSha(),
		LogsURL:       build.GetLogUrl(),
		Substitutions: build.GetSubstitutions(),
	}
	if t := build.GetCreateTime(); t != nil {
		out.Created = t.AsTime()
	}
	return out
}
