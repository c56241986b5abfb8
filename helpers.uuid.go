package main

import (
	"strings"

	"github.com/gofrs/uuid"
)

var _ UIDHandler = RequestIDs{}

// UIDHandler generates and checks ids of the form `prefix:uuid`.
type UIDHandler interface {
	Generate(prefix string) string
	IsValid(id, prefix string) bool
}

// RequestIDs issues random ids used to trace a request across the logs.
type RequestIDs struct{}

// NewRequestIDs returns the ids generator used by the request id middleware.
func NewRequestIDs() RequestIDs {
	return RequestIDs{}
}

// Generate returns `prefix:<uuid v4>`. A time-based uuid is used when the
// random source is unavailable.
func (RequestIDs) Generate(prefix string) string {
	id, err := uuid.NewV4()
	if err != nil {
		id = uuid.Must(uuid.NewV1())
	}
	return prefix + ":" + id.String()
}

// IsValid reports whether id carries the given prefix followed by a non-nil uuid.
func (RequestIDs) IsValid(id, prefix string) bool {
	p, raw, found := strings.Cut(id, ":")
	if !found || p != prefix {
		return false
	}
	parsed, err := uuid.FromString(raw)
	return err == nil && parsed != uuid.Nil
}
