package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enesbol/gcp-mcp/domain/operation"
	"github.com/enesbol/gcp-mcp/infrastructure/auth"
	"github.com/enesbol/gcp-mcp/infrastructure/config"
	"github.com/enesbol/gcp-mcp/infrastructure/logging"
	"github.com/enesbol/gcp-mcp/infrastructure/registry"
	"github.com/enesbol/gcp-mcp/interfaces/mcpserver"
	"github.com/enesbol/gcp-mcp/services/artifactregistry"
	"github.com/enesbol/gcp-mcp/services/auditlogs"
	"github.com/enesbol/gcp-mcp/services/bigquery"
	"github.com/enesbol/gcp-mcp/services/cloudbuild"
	"github.com/enesbol/gcp-mcp/services/cloudrun"
	"github.com/enesbol/gcp-mcp/services/compute"
	"github.com/enesbol/gcp-mcp/services/monitoring"
	"github.com/enesbol/gcp-mcp/services/prompts"
	"github.com/enesbol/gcp-mcp/services/storage"
)

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	var (
		configPath string
		transport  string
		addr       string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio (the default, for editor and agent
clients) or HTTP with SSE. Configuration is read from the environment,
optionally merged with a YAML file; GCP_PROJECT_ID must be set one way
or the other.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.Config{Level: logLevel, Format: logFormat})

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, transport, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "transport to serve on (stdio or http)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for the http transport")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "log output format (json or console)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Context, transport, addr string) error {
	resolver := auth.New(cfg)

	// The project may come from the config or from the resolved
	// credential. Without either, every operation would fail, so
	// refuse to start.
	if !cfg.HasProject() {
		handle, err := resolver.Resolve(ctx)
		if err != nil || handle.ProjectID() == "" {
			return fmt.Errorf("no GCP project configured: set %s or supply credentials that carry a project", config.EnvProjectID)
		}
	}

	clients := registry.New(cfg, resolver)
	defer clients.Close()

	reg, err := buildAdapters(clients)
	if err != nil {
		return err
	}

	host := mcpserver.New(mcpserver.Config{
		Name:        "gcp-mcp",
		Version:     Version,
		Description: "Operate Google Cloud Platform services over MCP",
		Registry:    reg,
		Defaults:    clients,
	})

	project, _ := clients.Project()
	logging.Info().
		Add(logging.Str("transport", transport)).
		Add(logging.Str("project", project)).
		Add(logging.Str("region", clients.Region())).
		Msg("starting gcp-mcp server")

	switch transport {
	case "stdio":
		return host.ServeStdio(ctx)
	case "http":
		return host.ServeHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport %q: use stdio or http", transport)
	}
}

// buildAdapters registers every service adapter with a fresh operation
// registry.
func buildAdapters(clients *registry.Registry) (*operation.Registry, error) {
	reg := operation.NewRegistry()
	adapters := []operation.Adapter{
		storage.NewWithRegistry(clients),
		bigquery.NewWithRegistry(clients),
		cloudrun.NewWithRegistry(clients),
		cloudbuild.NewWithRegistry(clients),
		compute.NewWithRegistry(clients),
		monitoring.NewWithRegistry(clients),
		auditlogs.NewWithRegistry(clients),
		artifactregistry.NewWithRegistry(clients),
		prompts.New(),
	}
	for _, a := range adapters {
		if err := reg.Register(a); err != nil {
			return nil, fmt.Errorf("registering %s adapter: %w", a.Service(), err)
		}
	}
	return reg, nil
}
