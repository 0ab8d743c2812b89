package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for server logging.

// ServiceName adds a service field.
func ServiceName(svc string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("service", svc)
	}
}

// OperationName adds an operation field.
func OperationName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", name)
	}
}

// InvocationID adds a per-call invocation id field.
func InvocationID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("invocation_id", id)
	}
}

// ErrorKind adds the classified error kind field.
func ErrorKind(kind string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("kind", kind)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Str adds a generic string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
