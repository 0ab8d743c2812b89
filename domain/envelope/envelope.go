// Package envelope implements the canonical response shape and the
// parameter defaulting rules every exposed operation goes through. The two
// transformations are independent: defaulting happens before an operation
// runs, normalization happens after, and no failure crosses this boundary
// as a raw error.
package envelope

import (
	"encoding/json"
	"time"

	"github.com/enesbol/gcp-mcp/domain/gcperr"
)

// Defaults supplies process-wide fallback values for unset parameters.
// The Client Registry implements this against the immutable Default Context.
type Defaults interface {
	// Project returns the default project id, or a
	// MissingConfigurationError when none was configured.
	Project() (string, error)

	// Region returns the default region.
	Region() string

	// Timeout returns the default per-operation timeout.
	Timeout() time.Duration
}

// Source names where an unset field's default comes from.
type Source int

const (
	// SourceNone means the field has no default source.
	SourceNone Source = iota

	// SourceProject substitutes the default project id.
	SourceProject

	// SourceRegion substitutes the default region.
	SourceRegion

	// SourceTimeout substitutes the default timeout, in seconds.
	SourceTimeout
)

// Field declares one parameter of an operation for defaulting purposes.
type Field struct {
	Name     string
	Source   Source
	Required bool
}

// Params is the inbound parameter set of a single operation call.
type Params map[string]any

// String returns the named parameter as a string.
func (p Params) String(name string) (string, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringOr returns the named string parameter or a fallback.
func (p Params) StringOr(name, fallback string) string {
	if s, ok := p.String(name); ok {
		return s
	}
	return fallback
}

// Int returns the named parameter as an int64. JSON numbers arrive as
// float64, so both representations are accepted.
func (p Params) Int(name string) (int64, bool) {
	switch v := p[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// Float returns the named parameter as a float64.
func (p Params) Float(name string) (float64, bool) {
	switch v := p[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// StringList returns the named parameter as a slice of strings,
// empty-safe. Non-string elements are skipped.
func (p Params) StringList(name string) []string {
	out := []string{}
	items, ok := p[name].([]any)
	if !ok {
		return out
	}
	for _, v := range items {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Bool returns the named parameter as a bool.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// StringMap returns the named parameter as a string map, empty-safe.
func (p Params) StringMap(name string) map[string]string {
	out := map[string]string{}
	m, ok := p[name].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Timeout returns the effective timeout for the call, preferring a caller
// override over the defaulted value.
func (p Params) Timeout(d Defaults) time.Duration {
	if secs, ok := p.Int("timeout"); ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return d.Timeout()
}

// ApplyDefaults substitutes unset fields from their declared default
// source, left to right in declared order, and verifies required fields.
// The input map is not mutated. Fields are independent, so the traversal
// order has no observable effect; it is fixed to keep the transformation
// deterministic.
func ApplyDefaults(p Params, fields []Field, d Defaults) (Params, error) {
	out := make(Params, len(p)+len(fields))
	for k, v := range p {
		out[k] = v
	}
	for _, f := range fields {
		if isSet(out[f.Name]) {
			continue
		}
		switch f.Source {
		case SourceProject:
			project, err := d.Project()
			if err != nil {
				return nil, err
			}
			out[f.Name] = project
		case SourceRegion:
			out[f.Name] = d.Region()
		case SourceTimeout:
			out[f.Name] = d.Timeout().Seconds()
		case SourceNone:
			if f.Required {
				return nil, gcperr.Newf(gcperr.KindMissingParameter,
					"required parameter %q was not provided and has no default", f.Name)
			}
		}
	}
	return out, nil
}

// isSet reports whether a parameter value counts as caller-provided.
// Explicit nulls and empty strings are treated as unset.
func isSet(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	default:
		return true
	}
}

// Success serializes a payload as a success envelope. Payload keys are
// merged at the top level next to the status discriminator. Keys colliding
// with "status" are overwritten by the discriminator.
func Success(payload map[string]any) string {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["status"] = "success"
	return marshal(body)
}

// Failure classifies err and serializes it as an error envelope. The
// message is already sanitized by the taxonomy layer.
func Failure(err error) string {
	ce := gcperr.Classify(err)
	if ce == nil {
		ce = gcperr.New(gcperr.KindBackendOperation, "unknown failure")
	}
	msg := ce.Message
	if msg == "" {
		msg = string(ce.Kind)
	}
	return marshal(map[string]any{
		"status":  "error",
		"kind":    string(ce.Kind),
		"message": msg,
	})
}

// marshal produces the canonical wire form: 2-space indentation and
// deterministic key order (encoding/json sorts map keys).
func marshal(body map[string]any) string {
	b, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		// A payload that cannot be marshaled is a programming error in the
		// adapter; report it through the same envelope discipline.
		return Failure(gcperr.Wrap(gcperr.KindBackendOperation, "encoding response payload", err))
	}
	return string(b)
}
