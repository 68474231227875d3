package models

import (
	"errors"
	"fmt"
)

// ErrCorruptIndex indicates the persisted index/metadata pair is unreadable,
// has a vector dimension that does not match the configured embedder, or the
// two artifacts disagree on record count. Recovery is a full rebuild.
var ErrCorruptIndex = errors.New("corrupt answer index")

// ErrNotFound indicates a referenced question or answer does not resolve to
// an active entity.
var ErrNotFound = errors.New("not found")

// ProviderError wraps a failure from an external embedding or generation
// backend (network, timeout, quota, malformed response). The core does not
// retry; callers own any retry policy.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
