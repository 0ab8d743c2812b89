package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	gcpmcp "github.com/enesbol/gcp-mcp"
)

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	if err := app.ExecuteWithArgs(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout.String(), "gcp-mcp version") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), gcpmcp.Version) {
		t.Errorf("stdout = %q, want the module version %s", stdout.String(), gcpmcp.Version)
	}
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "p1")
	t.Setenv("GCP_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"serve", "--transport", "carrier-pigeon"})
	if err == nil || !strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("err = %v, want unknown transport error", err)
	}
}

func TestServeRejectsMissingConfigFile(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"serve", "--config", "/does/not/exist.yaml"})
	if err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	if err := app.ExecuteWithArgs(context.Background(), []string{"frobnicate"}); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
