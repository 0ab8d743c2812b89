package envelope_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/enesbol/gcp-mcp/domain/envelope"
	"github.com/enesbol/gcp-mcp/domain/gcperr"
)

// stubDefaults implements envelope.Defaults for tests.
type stubDefaults struct {
	project    string
	projectErr error
	region     string
	timeout    time.Duration
}

func (s stubDefaults) Project() (string, error) {
	if s.projectErr != nil {
		return "", s.projectErr
	}
	return s.project, nil
}

func (s stubDefaults) Region() string         { return s.region }
func (s stubDefaults) Timeout() time.Duration { return s.timeout }

var testDefaults = stubDefaults{project: "p1", region: "us-central1", timeout: 300 * time.Second}

func TestApplyDefaults_Substitution(t *testing.T) {
	t.Parallel()

	fields := []envelope.Field{
		{Name: "project_id", Source: envelope.SourceProject},
		{Name: "region", Source: envelope.SourceRegion},
		{Name: "timeout", Source: envelope.SourceTimeout},
	}

	got, err := envelope.ApplyDefaults(envelope.Params{}, fields, testDefaults)
	if err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}

	if p, _ := got.String("project_id"); p != "p1" {
		t.Errorf("project_id = %q, want %q", p, "p1")
	}
	if r, _ := got.String("region"); r != "us-central1" {
		t.Errorf("region = %q, want %q", r, "us-central1")
	}
	if secs, ok := got.Int("timeout"); !ok || secs != 300 {
		t.Errorf("timeout = %d (ok=%v), want 300", secs, ok)
	}
}

func TestApplyDefaults_CallerValueWins(t *testing.T) {
	t.Parallel()

	fields := []envelope.Field{{Name: "project_id", Source: envelope.SourceProject}}
	got, err := envelope.ApplyDefaults(envelope.Params{"project_id": "explicit"}, fields, testDefaults)
	if err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}
	if p, _ := got.String("project_id"); p != "explicit" {
		t.Errorf("project_id = %q, want explicit caller value", p)
	}
}

func TestApplyDefaults_EmptyStringIsUnset(t *testing.T) {
	t.Parallel()

	fields := []envelope.Field{{Name: "region", Source: envelope.SourceRegion}}
	got, err := envelope.ApplyDefaults(envelope.Params{"region": ""}, fields, testDefaults)
	if err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}
	if r, _ := got.String("region"); r != "us-central1" {
		t.Errorf("region = %q, want default substitution", r)
	}
}

func TestApplyDefaults_MissingRequired(t *testing.T) {
	t.Parallel()

	fields := []envelope.Field{{Name: "bucket_name", Required: true}}
	_, err := envelope.ApplyDefaults(envelope.Params{}, fields, testDefaults)
	if gcperr.KindOf(err) != gcperr.KindMissingParameter {
		t.Errorf("ApplyDefaults() error kind = %v, want MissingParameterError", gcperr.KindOf(err))
	}
}

func TestApplyDefaults_MissingProjectConfiguration(t *testing.T) {
	t.Parallel()

	noProject := stubDefaults{
		projectErr: gcperr.New(gcperr.KindMissingConfiguration, "no default project configured"),
		region:     "us-central1",
	}
	fields := []envelope.Field{{Name: "project_id", Source: envelope.SourceProject}}
	_, err := envelope.ApplyDefaults(envelope.Params{}, fields, noProject)
	if gcperr.KindOf(err) != gcperr.KindMissingConfiguration {
		t.Errorf("ApplyDefaults() error kind = %v, want MissingConfigurationError", gcperr.KindOf(err))
	}
}

func TestApplyDefaults_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := envelope.Params{}
	fields := []envelope.Field{{Name: "project_id", Source: envelope.SourceProject}}
	if _, err := envelope.ApplyDefaults(in, fields, testDefaults); err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}
	if _, ok := in["project_id"]; ok {
		t.Error("ApplyDefaults() mutated the input parameter set")
	}
}

func TestSuccess_Shape(t *testing.T) {
	t.Parallel()

	out := envelope.Success(map[string]any{
		"buckets": []map[string]any{{"name": "a"}, {"name": "b"}},
		"count":   2,
	})

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Success() produced invalid JSON: %v", err)
	}
	if decoded["status"] != "success" {
		t.Errorf("status = %v, want success", decoded["status"])
	}
	if decoded["count"] != float64(2) {
		t.Errorf("count = %v, want 2", decoded["count"])
	}
	if !strings.Contains(out, "\n  \"") {
		t.Error("Success() output is not 2-space indented")
	}
}

func TestFailure_ShapePerKind(t *testing.T) {
	t.Parallel()

	kinds := []gcperr.Kind{
		gcperr.KindMalformedCredential,
		gcperr.KindCredentialFile,
		gcperr.KindNoCredential,
		gcperr.KindClientConstruction,
		gcperr.KindMissingConfiguration,
		gcperr.KindMissingParameter,
		gcperr.KindTimeout,
		gcperr.KindBackendOperation,
	}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()

			out := envelope.Failure(gcperr.New(kind, "something went wrong"))

			var decoded map[string]any
			if err := json.Unmarshal([]byte(out), &decoded); err != nil {
				t.Fatalf("Failure() produced invalid JSON: %v", err)
			}
			if decoded["status"] != "error" {
				t.Errorf("status = %v, want error", decoded["status"])
			}
			if decoded["kind"] != string(kind) {
				t.Errorf("kind = %v, want %v", decoded["kind"], kind)
			}
			msg, _ := decoded["message"].(string)
			if msg == "" {
				t.Error("message is empty")
			}
		})
	}
}

func TestFailure_UnclassifiedError(t *testing.T) {
	t.Parallel()

	out := envelope.Failure(errors.New("raw backend explosion"))

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Failure() produced invalid JSON: %v", err)
	}
	if decoded["kind"] != string(gcperr.KindBackendOperation) {
		t.Errorf("kind = %v, want BackendOperationError", decoded["kind"])
	}
}

func TestLabels_EmptySafe(t *testing.T) {
	t.Parallel()

	out := envelope.Success(map[string]any{"labels": envelope.Labels(nil)})
	if !strings.Contains(out, `"labels": {}`) {
		t.Errorf("labels did not normalize to {}: %s", out)
	}
}

func TestList_EmptySafe(t *testing.T) {
	t.Parallel()

	out := envelope.Success(map[string]any{"buckets": envelope.List[string](nil)})
	if !strings.Contains(out, `"buckets": []`) {
		t.Errorf("nil slice did not normalize to []: %s", out)
	}
}

func TestParams_Timeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params envelope.Params
		want   time.Duration
	}{
		{"caller override", envelope.Params{"timeout": float64(60)}, 60 * time.Second},
		{"default", envelope.Params{}, 300 * time.Second},
		{"zero falls back", envelope.Params{"timeout": float64(0)}, 300 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.params.Timeout(testDefaults); got != tt.want {
				t.Errorf("Timeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParams_Float(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params envelope.Params
		want   float64
		ok     bool
	}{
		{"json number", envelope.Params{"threshold": float64(0.8)}, 0.8, true},
		{"integer literal", envelope.Params{"threshold": 5}, 5, true},
		{"missing", envelope.Params{}, 0, false},
		{"wrong type", envelope.Params{"threshold": "0.8"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.params.Float("threshold")
			if got != tt.want || ok != tt.ok {
				t.Errorf("Float() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParams_StringList(t *testing.T) {
	t.Parallel()

	p := envelope.Params{"channels": []any{"a", "b", 3, ""}}
	if got := p.StringList("channels"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("StringList() = %v, want [a b]", got)
	}
	if got := (envelope.Params{}).StringList("channels"); got == nil {
		t.Error("StringList(missing) must be an empty slice, not nil")
	}
}

func TestTimestamp(t *testing.T) {
	t.Parallel()

	if got := envelope.Timestamp(time.Time{}); got != "" {
		t.Errorf("Timestamp(zero) = %q, want empty", got)
	}
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := envelope.Timestamp(ts); got != "2024-05-01T12:00:00Z" {
		t.Errorf("Timestamp() = %q", got)
	}
}
