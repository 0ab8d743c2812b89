// Package gcpmcp provides the version information for gcp-mcp.
package gcpmcp

// Version is the current version of gcp-mcp.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
