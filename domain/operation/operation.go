// Package operation defines the contract between service adapters and the
// server host. Adapters declare their operations as static descriptors
// (name, parameter declarations, handler) and the host iterates over a
// registry of adapters; adapters never mutate the host.
package operation

import (
	"context"

	"github.com/enesbol/gcp-mcp/domain/envelope"
)

// Handler executes one operation with an already-defaulted parameter set.
// It returns the raw payload; envelope wrapping happens at the host
// boundary, so handlers are free to return errors of any origin.
type Handler func(ctx context.Context, p envelope.Params) (map[string]any, error)

// Operation is the static descriptor of a single exposed operation.
type Operation struct {
	// Name is the stable tool name, e.g. "storage_list_buckets".
	Name string

	// Description is shown to the calling agent.
	Description string

	// Fields declares the parameters that participate in default
	// substitution and required-parameter checking.
	Fields []envelope.Field

	// ReadOnly marks operations with no side effects on the backend.
	ReadOnly bool

	// Handler executes the operation.
	Handler Handler
}

// Adapter is one cloud-service integration. Implementations own their
// operation descriptors and borrow backend clients from the registry; they
// never construct connectors themselves.
type Adapter interface {
	// Service returns the service identifier, e.g. "storage".
	Service() string

	// Operations returns the adapter's operation descriptors.
	Operations() []Operation
}
