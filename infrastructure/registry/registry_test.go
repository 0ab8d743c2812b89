package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/enesbol/gcp-mcp/domain/gcperr"
	"github.com/enesbol/gcp-mcp/infrastructure/auth"
	"github.com/enesbol/gcp-mcp/infrastructure/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.NewContext(config.Settings{
		ProjectID:       "demo",
		Region:          "us-central1",
		Timeout:         300 * time.Second,
		CredentialsJSON: []byte(`{"type":"service_account"}`),
	})
	resolver := auth.NewWithHooks(cfg, auth.Hooks{
		ParseJSON: func(context.Context, []byte, ...string) (*google.Credentials, error) {
			return &google.Credentials{ProjectID: "demo"}, nil
		},
	})
	return New(cfg, resolver)
}

func TestHandle_SingleFlight(t *testing.T) {
	t.Parallel()

	r := testRegistry(t)

	var constructions atomic.Int64
	build := func(ctx context.Context, _ *Registry, _ []option.ClientOption) (any, func() error, error) {
		constructions.Add(1)
		time.Sleep(10 * time.Millisecond) // widen the race window
		return "connector", nil, nil
	}

	const callers = 16
	handles := make([]*Handle, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := r.handle(context.Background(), ServiceStorage, build)
			if err != nil {
				t.Errorf("handle() error = %v", err)
				return
			}
			handles[i] = h
		}()
	}
	wg.Wait()

	if constructions.Load() != 1 {
		t.Errorf("constructed %d connectors, want exactly 1", constructions.Load())
	}
	for i := 1; i < callers; i++ {
		if handles[i] != handles[0] {
			t.Fatal("concurrent callers observed different handles")
		}
	}
}

func TestHandle_CachedAcrossCalls(t *testing.T) {
	t.Parallel()

	r := testRegistry(t)

	var constructions atomic.Int64
	build := func(context.Context, *Registry, []option.ClientOption) (any, func() error, error) {
		constructions.Add(1)
		return "connector", nil, nil
	}

	first, err := r.handle(context.Background(), ServiceBigQuery, build)
	if err != nil {
		t.Fatalf("handle() error = %v", err)
	}
	second, err := r.handle(context.Background(), ServiceBigQuery, build)
	if err != nil {
		t.Fatalf("handle() error = %v", err)
	}
	if first != second {
		t.Error("second call returned a different handle")
	}
	if constructions.Load() != 1 {
		t.Errorf("constructed %d times, want 1", constructions.Load())
	}
}

func TestHandle_FailureNotCached(t *testing.T) {
	t.Parallel()

	r := testRegistry(t)

	fail := atomic.Bool{}
	fail.Store(true)
	build := func(context.Context, *Registry, []option.ClientOption) (any, func() error, error) {
		if fail.Load() {
			return nil, nil, errors.New("service disabled")
		}
		return "connector", nil, nil
	}

	_, err := r.handle(context.Background(), ServiceCompute, build)
	if gcperr.KindOf(err) != gcperr.KindClientConstruction {
		t.Fatalf("handle() error kind = %v, want ClientConstructionError", gcperr.KindOf(err))
	}

	fail.Store(false)
	h, err := r.handle(context.Background(), ServiceCompute, build)
	if err != nil {
		t.Fatalf("handle() after fixing failure: %v", err)
	}
	if h.client != any("connector") {
		t.Errorf("handle() client = %v", h.client)
	}
}

func TestHandle_IndependentServices(t *testing.T) {
	t.Parallel()

	r := testRegistry(t)

	build := func(svc string) buildFunc {
		return func(context.Context, *Registry, []option.ClientOption) (any, func() error, error) {
			return svc, nil, nil
		}
	}

	storage, err := r.handle(context.Background(), ServiceStorage, build("storage"))
	if err != nil {
		t.Fatal(err)
	}
	logging, err := r.handle(context.Background(), ServiceLogging, build("logging"))
	if err != nil {
		t.Fatal(err)
	}
	if storage == logging || storage.client == logging.client {
		t.Error("different services shared one handle")
	}
	if len(r.Handles()) != 2 {
		t.Errorf("Handles() = %d entries, want 2", len(r.Handles()))
	}
}

func TestHandle_CredentialFailurePropagatesKind(t *testing.T) {
	t.Parallel()

	cfg := config.NewContext(config.Settings{ProjectID: "demo"})
	resolver := auth.NewWithHooks(cfg, auth.Hooks{
		FindDefault: func(context.Context, ...string) (*google.Credentials, error) {
			return nil, errors.New("no ADC")
		},
	})
	r := New(cfg, resolver)

	var constructions atomic.Int64
	build := func(context.Context, *Registry, []option.ClientOption) (any, func() error, error) {
		constructions.Add(1)
		return "connector", nil, nil
	}

	_, err := r.handle(context.Background(), ServiceStorage, build)
	if gcperr.KindOf(err) != gcperr.KindNoCredential {
		t.Errorf("handle() error kind = %v, want NoCredentialError", gcperr.KindOf(err))
	}
	if constructions.Load() != 0 {
		t.Error("connector constructed despite credential failure")
	}
}

func TestRegistry_Defaults(t *testing.T) {
	t.Parallel()

	r := testRegistry(t)

	project, err := r.Project()
	if err != nil || project != "demo" {
		t.Errorf("Project() = %q, %v", project, err)
	}
	if r.Region() != "us-central1" {
		t.Errorf("Region() = %q", r.Region())
	}
	if r.Timeout() != 300*time.Second {
		t.Errorf("Timeout() = %v", r.Timeout())
	}
}

func TestRegistry_ProjectFromResolvedCredentials(t *testing.T) {
	t.Parallel()

	cfg := config.NewContext(config.Settings{})
	resolver := auth.NewWithHooks(cfg, auth.Hooks{
		FindDefault: func(context.Context, ...string) (*google.Credentials, error) {
			return &google.Credentials{ProjectID: "adc-project"}, nil
		},
	})
	r := New(cfg, resolver)

	// Before resolution there is nothing to fall back to.
	if _, err := r.Project(); gcperr.KindOf(err) != gcperr.KindMissingConfiguration {
		t.Errorf("Project() error kind = %v, want MissingConfigurationError", gcperr.KindOf(err))
	}

	if _, err := resolver.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	project, err := r.Project()
	if err != nil || project != "adc-project" {
		t.Errorf("Project() = %q, %v; want adc-project", project, err)
	}
}

func TestRegistry_Close(t *testing.T) {
	t.Parallel()

	r := testRegistry(t)

	closed := atomic.Int64{}
	build := func(context.Context, *Registry, []option.ClientOption) (any, func() error, error) {
		return "connector", func() error { closed.Add(1); return nil }, nil
	}

	if _, err := r.handle(context.Background(), ServiceStorage, build); err != nil {
		t.Fatal(err)
	}
	if _, err := r.handle(context.Background(), ServiceRun, build); err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if closed.Load() != 2 {
		t.Errorf("closed %d clients, want 2", closed.Load())
	}
	if len(r.Handles()) != 0 {
		t.Error("handles remain after Close()")
	}
}
