// Package auth resolves Google Cloud credentials once per process and
// hands out an opaque handle. Resolution follows a fixed order: inline
// service-account JSON, then a key file path, then ambient application
// default credentials. Concurrent callers coalesce onto one attempt, and
// the outcome (success or failure) is cached until Invalidate.
package auth

import (
	"context"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/infrastructure/config"
)

// CloudPlatformScope is the OAuth scope requested for every credential.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// SourceKind names where a resolved credential came from.
type SourceKind string

const (
	// SourceInline is inline service-account JSON material.
	SourceInline SourceKind = "inline"

	// SourceFile is a service-account key file path.
	SourceFile SourceKind = "file"

	// SourceAmbient is ambient application default credential discovery.
	SourceAmbient SourceKind = "ambient"
)

// Handle is the resolved identity. It never exposes raw key material; the
// only outward capability is ClientOptions, consumed by client
// construction in the registry.
type Handle struct {
	kind  SourceKind
	creds *google.Credentials
}

// Source returns where the credential was resolved from.
func (h *Handle) Source() SourceKind {
	return h.kind
}

// ProjectID returns the project id carried by the credential, if any.
func (h *Handle) ProjectID() string {
	if h.creds == nil {
		return ""
	}
	return h.creds.ProjectID
}

// ClientOptions returns the options that bind a backend client to this
// identity.
func (h *Handle) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithCredentials(h.creds)}
}

// Hooks abstracts the underlying credential loading side effects so tests
// can observe and fail them without touching the real keychain.
type Hooks struct {
	// ParseJSON parses service-account JSON into credentials.
	ParseJSON func(ctx context.Context, data []byte, scopes ...string) (*google.Credentials, error)

	// ReadFile reads a key file from disk.
	ReadFile func(path string) ([]byte, error)

	// FindDefault discovers ambient application default credentials.
	FindDefault func(ctx context.Context, scopes ...string) (*google.Credentials, error)
}

func defaultHooks() Hooks {
	return Hooks{
		ParseJSON:   google.CredentialsFromJSON,
		ReadFile:    os.ReadFile,
		FindDefault: google.FindDefaultCredentials,
	}
}

// Resolver resolves credentials at most once per process. The zero value
// is not usable; construct with New.
type Resolver struct {
	cfg   *config.Context
	hooks Hooks

	mu     sync.Mutex
	done   bool
	handle *Handle
	err    error
}

// New creates a resolver bound to the Default Context's credential
// selectors.
func New(cfg *config.Context) *Resolver {
	return NewWithHooks(cfg, defaultHooks())
}

// NewWithHooks creates a resolver with custom loading hooks. Nil hooks
// fall back to the real implementations.
func NewWithHooks(cfg *config.Context, hooks Hooks) *Resolver {
	def := defaultHooks()
	if hooks.ParseJSON == nil {
		hooks.ParseJSON = def.ParseJSON
	}
	if hooks.ReadFile == nil {
		hooks.ReadFile = def.ReadFile
	}
	if hooks.FindDefault == nil {
		hooks.FindDefault = def.FindDefault
	}
	return &Resolver{cfg: cfg, hooks: hooks}
}

// Resolve returns the process credential handle, performing the one-time
// resolution on first call. Concurrent first callers block on the same
// attempt and share its outcome; the outcome is cached either way.
func (r *Resolver) Resolve(ctx context.Context) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return r.handle, r.err
	}
	r.handle, r.err = r.resolve(ctx)
	r.done = true
	return r.handle, r.err
}

// Peek returns the already-resolved handle without triggering a
// resolution. Used for non-blocking reads such as project defaulting.
func (r *Resolver) Peek() (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done && r.err == nil {
		return r.handle, true
	}
	return nil, false
}

// Invalidate discards the cached outcome so the next Resolve performs a
// fresh resolution. Intended for credential rotation and tests.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = false
	r.handle = nil
	r.err = nil
}

func (r *Resolver) resolve(ctx context.Context) (*Handle, error) {
	if inline := r.cfg.CredentialsJSON(); len(inline) > 0 {
		creds, err := r.hooks.ParseJSON(ctx, inline, CloudPlatformScope)
		if err != nil {
			return nil, gcperr.Wrap(gcperr.KindMalformedCredential,
				"parsing inline service account JSON", err)
		}
		return &Handle{kind: SourceInline, creds: creds}, nil
	}

	if path := r.cfg.CredentialsFile(); path != "" {
		data, err := r.hooks.ReadFile(path)
		if err != nil {
			return nil, gcperr.Wrap(gcperr.KindCredentialFile,
				"reading service account key file", err)
		}
		creds, err := r.hooks.ParseJSON(ctx, data, CloudPlatformScope)
		if err != nil {
			return nil, gcperr.Wrap(gcperr.KindCredentialFile,
				"parsing service account key file", err)
		}
		return &Handle{kind: SourceFile, creds: creds}, nil
	}

	creds, err := r.hooks.FindDefault(ctx, CloudPlatformScope)
	if err != nil {
		return nil, gcperr.Wrap(gcperr.KindNoCredential,
			"no ambient Google Cloud credentials discoverable", err)
	}
	return &Handle{kind: SourceAmbient, creds: creds}, nil
}
