package ocfl

import "fmt"

// ErrNotFound indicates that a requested object, version, or logical path
// does not exist.
var ErrNotFound = fmt.Errorf("not found")

// PathConstraintError indicates a logical or content path violates one of
// the path constraints on version state or manifest entries (non-empty, no
// "." or ".." segments, no leading/trailing "/", unique per digest).
type PathConstraintError struct {
	Path string
	Err  error
}

func (e *PathConstraintError) Error() string {
	return fmt.Sprintf("invalid path %q: %v", e.Path, e.Err)
}

func (e *PathConstraintError) Unwrap() error { return e.Err }

// InvalidVersionError indicates an operation referenced a version number
// that doesn't exist in an object's inventory.
type InvalidVersionError struct {
	Version VNum
	Err     error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("version %s: %v", e.Version, e.Err)
}

func (e *InvalidVersionError) Unwrap() error { return e.Err }

// ObjectOutOfSyncError indicates a storage-engine operation's assumption
// about an object's current state (typically its head version) no longer
// holds, usually because another writer committed a change to the object
// after the caller read it.
type ObjectOutOfSyncError struct {
	ObjectID string
	Err      error
}

func (e *ObjectOutOfSyncError) Error() string {
	return fmt.Sprintf("object %q is out of sync with the caller's expectations: %v", e.ObjectID, e.Err)
}

func (e *ObjectOutOfSyncError) Unwrap() error { return e.Err }
