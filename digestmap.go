package ocfl

import (
	"io/fs"
	"iter"
	"path"
	"sort"
	"strings"
)

// DigestMap represents the digest -> logical paths association used by an
// inventory's manifest, version states, and fixity blocks. Keys are digest
// values as they appear in an inventory (case preserved); values are the
// paths associated with that digest.
type DigestMap map[string][]string

// PathMap represents a logical path -> digest association, the inverse of a
// DigestMap. It's used while assembling a DigestMap from path-oriented
// sources (e.g., a storage walk) before validating digest/path uniqueness.
type PathMap map[string]string

// DigestMapValid inverts a PathMap into a DigestMap, returning an error if
// the resulting DigestMap is not valid (see [DigestMap.Valid]).
func (pm PathMap) DigestMapValid() (DigestMap, error) {
	dm := DigestMap{}
	for p, dig := range pm {
		dm[dig] = append(dm[dig], p)
	}
	for dig := range dm {
		sort.Strings(dm[dig])
	}
	if err := dm.Valid(); err != nil {
		return nil, err
	}
	return dm, nil
}

// EachPath calls fn for every (path, digest) pair in the map, in a stable
// order. Iteration stops early if fn returns false.
func (dm DigestMap) EachPath(fn func(path, digest string) bool) {
	digests := make([]string, 0, len(dm))
	for dig := range dm {
		digests = append(digests, dig)
	}
	sort.Strings(digests)
	for _, dig := range digests {
		paths := append([]string(nil), dm[dig]...)
		sort.Strings(paths)
		for _, p := range paths {
			if !fn(p, dig) {
				return
			}
		}
	}
}

// AllPaths returns an iterator over all (path, digest) pairs in the map, in
// a stable order.
func (dm DigestMap) AllPaths() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		dm.EachPath(yield)
	}
}

// AllDigests returns an iterator over all digest values in the map.
func (dm DigestMap) AllDigests() iter.Seq[string] {
	return func(yield func(string) bool) {
		for dig := range dm {
			if !yield(dig) {
				return
			}
		}
	}
}

// Valid checks dm for internal consistency: every path must be a valid
// relative path, no path may be associated with more than one digest, no two
// digest keys may be equal except for case, and no path may be used as both a
// file and a directory (e.g., "a/b" and "a/b/c" can't both appear).
func (dm DigestMap) Valid() error {
	seenDigests := map[string]string{} // lowercased digest -> original-case digest
	allPaths := map[string]bool{}
	for dig, paths := range dm {
		lower := strings.ToLower(dig)
		if orig, exists := seenDigests[lower]; exists && orig != dig {
			return &DigestConflictErr{Digest: dig}
		}
		seenDigests[lower] = dig
		for _, p := range paths {
			if p == "." || !fs.ValidPath(p) {
				return &PathInvalidErr{Path: p}
			}
			if allPaths[p] {
				return &PathConflictErr{Path: p}
			}
			allPaths[p] = true
		}
	}
	for p := range allPaths {
		for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
			if allPaths[dir] {
				return &BasePathErr{Path: dir}
			}
		}
	}
	return nil
}

// DigestConflictErr indicates the same digest appears more than once in a
// DigestMap using different case.
type DigestConflictErr struct{ Digest string }

func (e *DigestConflictErr) Error() string { return "digest conflict: " + e.Digest }

// PathConflictErr indicates the same path is associated with more than one
// digest in a DigestMap.
type PathConflictErr struct{ Path string }

func (e *PathConflictErr) Error() string { return "path conflict: " + e.Path }

// PathInvalidErr indicates an invalid path in a DigestMap.
type PathInvalidErr struct{ Path string }

func (e *PathInvalidErr) Error() string { return "invalid path: " + e.Path }

// BasePathErr indicates a path in a DigestMap is used as both a file and a
// directory.
type BasePathErr struct{ Path string }

func (e *BasePathErr) Error() string {
	return "path used as both a file and a directory: " + e.Path
}

// DigestExists reports whether digest is present in the map.
func (dm DigestMap) DigestExists(digest string) bool {
	_, ok := dm[digest]
	return ok
}

// Eq reports whether dm and other associate the same digests with the same
// sets of paths.
func (dm DigestMap) Eq(other DigestMap) bool {
	if len(dm) != len(other) {
		return false
	}
	for dig, paths := range dm {
		otherPaths, ok := other[dig]
		if !ok || len(paths) != len(otherPaths) {
			return false
		}
		a := append([]string(nil), paths...)
		b := append([]string(nil), otherPaths...)
		sort.Strings(a)
		sort.Strings(b)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// DigestSet is a set of digest values for a single piece of content, keyed by
// algorithm name.
type DigestSet map[string]string

// GetFixity returns the DigestSet of supplementary digest values recorded in
// fixity for the content identified in manifest by digest.
func (dm DigestMap) GetFixity(digest string, fixity map[string]DigestMap) DigestSet {
	paths := dm[digest]
	if len(paths) == 0 {
		return nil
	}
	set := DigestSet{}
	for alg, fixMap := range fixity {
		for sum, fixPaths := range fixMap {
			for _, fp := range fixPaths {
				if fp == paths[0] {
					set[alg] = sum
				}
			}
		}
	}
	return set
}

// Merge returns a new DigestMap combining dm with added, preferring added's
// paths for any digest present in both.
func (dm DigestMap) Merge(added DigestMap) DigestMap {
	out := DigestMap{}
	for dig, paths := range dm {
		out[dig] = append([]string(nil), paths...)
	}
	for dig, paths := range added {
		out[dig] = append([]string(nil), paths...)
	}
	return out
}

// Normalize returns a copy of dm with its path lists sorted. Digest case is
// preserved: the OCFL spec requires manifests and version states to use the
// digest's case as computed, so normalization only touches path ordering.
func (dm DigestMap) Normalize() (DigestMap, error) {
	out := make(DigestMap, len(dm))
	for dig, paths := range dm {
		cp := append([]string(nil), paths...)
		sort.Strings(cp)
		out[dig] = cp
	}
	return out, nil
}
