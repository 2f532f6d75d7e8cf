package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not resolve
	// inside the caller's tenant.
	ErrNotFound = errors.New("record not found")

	// ErrProviderNotConfigured means no completion-API credential is set.
	ErrProviderNotConfigured = errors.New("completion provider not configured")
)
