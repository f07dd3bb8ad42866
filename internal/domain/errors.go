package domain

import "fmt"

// ModelLoadError reports a classifier artifact that exists but could not be
// deserialized. It is fatal at startup; an absent artifact is not an error
// and selects the rule fallback instead.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model artifact from %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// InferenceError reports a failure of a loaded classifier during prediction.
// It is surfaced to the caller as a request-level failure, never downgraded
// to the fallback.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("classifier inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// StorageError reports a failure to initialize or append to the history log.
// The diagnosis was already computed when it occurs, so callers must report
// "computed but not saved" rather than discarding the result silently.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
