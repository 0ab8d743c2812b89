package envelope

import "time"

// Labels normalizes a label map for output: nil becomes an empty map so
// the serialized field is always {} rather than null or absent.
func Labels(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// List normalizes a slice for output: nil becomes an empty slice so the
// serialized field is always [] rather than null.
func List[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Timestamp formats a time for output, normalizing the zero value to an
// empty string rather than a bogus epoch.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
