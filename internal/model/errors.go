package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores and the provider when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrProviderUnavailable means the identity provider could not be reached at all.
// A run that fails with this error produced no partial result.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// ErrSyncInProgress is returned when a run is requested while another run
// holds the single-flight guard.
var ErrSyncInProgress = errors.New("sync already in progress")

// MissingAttributeError reports a provider record that lacks a required attribute.
type MissingAttributeError struct {
	ProviderID string
	Attribute  string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("provider record %s: missing required attribute %q", e.ProviderID, e.Attribute)
}
