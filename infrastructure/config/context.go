// Package config carries the server's Default Context: the project,
// region and timeout substituted into operations that omit them, plus
// the credential material locations for the auth resolver.
package config

import (
	"time"

	"github.com/enesbol/gcp-mcp/domain/gcperr"
)

// Defaults applied when neither the environment nor a config file
// supplies a value.
const (
	DefaultRegion  = "us-central1"
	DefaultTimeout = 300 * time.Second
)

// Environment variable names the loader reads.
const (
	EnvProjectID        = "GCP_PROJECT_ID"
	EnvLocation         = "GCP_LOCATION"
	EnvOperationTimeout = "GCP_OPERATION_TIMEOUT"
	EnvCredentialsJSON  = "GCP_SERVICE_ACCOUNT_JSON"
	EnvCredentialsFile  = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvKeyPath          = "GCP_SERVICE_ACCOUNT_KEY_PATH"
)

// Settings is the mutable input to NewContext.
type Settings struct {
	ProjectID       string
	Region          string
	Timeout         time.Duration
	CredentialsJSON []byte
	CredentialsFile string
}

// Context is the immutable Default Context. The project may be absent;
// Project reports that as a MissingConfigurationError so callers can
// surface it through the envelope rather than crash.
type Context struct {
	projectID       string
	region          string
	timeout         time.Duration
	credentialsJSON []byte
	credentialsFile string
}

// NewContext creates a Context from settings, filling region and
// timeout fallbacks.
func NewContext(s Settings) *Context {
	c := &Context{
		projectID:       s.ProjectID,
		region:          s.Region,
		timeout:         s.Timeout,
		credentialsJSON: s.CredentialsJSON,
		credentialsFile: s.CredentialsFile,
	}
	if c.region == "" {
		c.region = DefaultRegion
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// Project returns the configured project id.
func (c *Context) Project() (string, error) {
	if c.projectID == "" {
		return "", gcperr.New(gcperr.KindMissingConfiguration,
			"no project configured: set "+EnvProjectID+" or pass project_id explicitly")
	}
	return c.projectID, nil
}

// HasProject reports whether a project id is configured.
func (c *Context) HasProject() bool {
	return c.projectID != ""
}

// Region returns the configured region, never empty.
func (c *Context) Region() string {
	return c.region
}

// Timeout returns the default per-operation timeout, never zero.
func (c *Context) Timeout() time.Duration {
	return c.timeout
}

// CredentialsJSON returns inline service account JSON, or nil.
func (c *Context) CredentialsJSON() []byte {
	return c.credentialsJSON
}

// CredentialsFile returns the path to a service account key file, or
// an empty string.
func (c *Context) CredentialsFile() string {
	return c.credentialsFile
}
