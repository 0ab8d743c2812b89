// Package prompts exposes guidance templates as read-only operations.
// They take no backend and render locally.
package prompts

import (
	"context"
	"fmt"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/operation"
)

const serviceHelpTemplate = `I need help with using %s in Google Cloud Platform.

Please help me understand:
1. Common operations and best practices
2. Required parameters and configuration
3. Security considerations
4. Recommended patterns for %[1]s`

const errorAnalysisTemplate = `I received this error from GCP:
%s

Please help me:
1. Understand what caused this error
2. Find potential solutions
3. Prevent similar errors in the future`

// Adapter serves prompt templates through the dispatch registry.
type Adapter struct{}

// New creates the prompts adapter.
func New() *Adapter {
	return &Adapter{}
}

// Service returns the service identifier.
func (a *Adapter) Service() string {
	return "prompts"
}

// Operations returns the adapter's operation descriptors.
func (a *Adapter) Operations() []operation.Operation {
	return []operation.Operation{
		{
			Name:        "gcp_service_help",
			Description: "Render a guidance prompt for working with a GCP service",
			Fields: []envelope.Field{
				{Name: "service_name", Required: true},
			},
			ReadOnly: true,
			Handler:  a.serviceHelp,
		},
		{
			Name:        "error_analysis",
			Description: "Render a prompt that walks through analyzing a GCP error message",
			Fields: []envelope.Field{
				{Name: "error_message", Required: true},
			},
			ReadOnly: true,
			Handler:  a.errorAnalysis,
		},
	}
}

func (a *Adapter) serviceHelp(ctx context.Context, p envelope.Params) (map[string]any, error) {
	service, _ := p.String("service_name")
	return map[string]any{
		"prompt": fmt.Sprintf(serviceHelpTemplate, service),
	}, nil
}

func (a *Adapter) errorAnalysis(ctx context.Context, p envelope.Params) (map[string]any, error) {
	message, _ := p.String("error_message")
	return map[string]any{
		"prompt": fmt.Sprintf(errorAnalysisTemplate, message),
	}, nil
}
