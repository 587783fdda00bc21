package ocfl

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LPath represents an OCFL logical file path: a version state path, checked
// to be relative and confined to the object's logical tree. Export
// operations run every logical path through NewLPath before writing outside
// of an object's storage root, since a logical path ultimately comes from an
// inventory and shouldn't be trusted to stay within the destination
// directory without checking.
type LPath string

func NewLPath(path string) (LPath, error) {
	path = filepath.Clean(path)
	if filepath.IsAbs(path) {
		return ``, fmt.Errorf(`not a relative path: %s`, path)
	}
	if strings.HasPrefix(path, `..`) {
		return ``, fmt.Errorf(`path out of scope: %s`, path)
	}
	return LPath(filepath.ToSlash(path)), nil
}

func (p LPath) RelPath() string {
	return filepath.FromSlash(string(p))
}

func (p LPath) String() string {
	return string(p)
}
