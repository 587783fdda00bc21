package ocfl

// ContentSource provides access to new content being added to an object
// during a commit. Implementations resolve a content digest to the FS and
// path where that content can currently be read from (typically a staging
// area, not the object's storage root).
type ContentSource interface {
	// GetContent returns the FS and path for the content identified by
	// digest, or a nil FS if the source doesn't have it.
	GetContent(digest string) (FS, string)
}

// FixitySource provides supplementary digest values, computed using
// algorithms other than the object's primary digest algorithm, for content
// being added during a commit. These values populate the inventory's fixity
// block.
type FixitySource interface {
	// GetFixity returns a map of algorithm name to digest value for the
	// content identified by primary digest. A nil/empty result means no
	// additional fixity values are available for that content.
	GetFixity(digest string) map[string]string
}

// Stage represents the complete state for a new object version: its logical
// state (the digests and logical paths that make up the version) along with
// sources for any new content and supplementary fixity values the version
// requires. A Stage is typically built incrementally (e.g. by walking a
// local directory or replaying a previous version's state with edits) and
// then passed to Commit.
type Stage struct {
	State           DigestMap     // digest -> logical paths for the new version
	DigestAlgorithm string        // primary digest algorithm used for State
	ContentSource   ContentSource // source for new content, if any
	FixitySource    FixitySource  // source for supplementary digests, if any
}

// HasContent reports whether the stage can provide the content identified by
// digest, either because it's new content backed by ContentSource.
func (s *Stage) HasContent(digest string) bool {
	if s.ContentSource == nil {
		return false
	}
	fsys, _ := s.ContentSource.GetContent(digest)
	return fsys != nil
}

// GetContent implements ContentSource by delegating to the stage's
// ContentSource, if set.
func (s *Stage) GetContent(digest string) (FS, string) {
	if s.ContentSource == nil {
		return nil, ""
	}
	return s.ContentSource.GetContent(digest)
}
