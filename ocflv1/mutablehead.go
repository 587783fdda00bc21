package ocflv1

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ocfl-archive/ocflgo"
	ocflfs "github.com/ocfl-archive/ocflgo/fs"
	"github.com/ocfl-archive/ocflgo/logging"
)

// mutableHeadExtName is the extension name under which staged, not-yet-
// committed object changes live: extensions/0005-mutable-head.
const mutableHeadExtName = "0005-mutable-head"

// ErrNoMutableHead is returned by operations that require an existing
// mutable head when the object doesn't have one staged.
var ErrNoMutableHead = errors.New("object has no mutable head")

// ExtensionError wraps a failure specific to an object extension (for
// example, a malformed mutable-head revision marker).
type ExtensionError struct {
	Name string // extension name
	Err  error
}

func (e *ExtensionError) Error() string { return fmt.Sprintf("extension %q: %v", e.Name, e.Err) }
func (e *ExtensionError) Unwrap() error { return e.Err }

func mutableHeadDir(objPath string) string {
	return path.Join(objPath, extensionsDir, mutableHeadExtName)
}

func mutableHeadStagingDir(objPath string) string {
	return path.Join(mutableHeadDir(objPath), "head")
}

func mutableHeadRevisionsDir(objPath string) string {
	return path.Join(mutableHeadDir(objPath), "revisions")
}

func mutableHeadRevisionContentPrefix(rev ocfl.VNum) string {
	return path.Join(extensionsDir, mutableHeadExtName, rev.String(), contentDir) + "/"
}

// HasMutableHead reports whether the object at objPath has a staged
// mutable-head revision.
func HasMutableHead(ctx context.Context, fsys ocfl.FS, objPath string) (bool, error) {
	f, err := fsys.OpenFile(ctx, path.Join(mutableHeadStagingDir(objPath), inventoryFile))
	switch {
	case err == nil:
		f.Close()
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// ReadMutableHead reads and validates the object's staged mutable-head
// inventory, returning ErrNoMutableHead if the object doesn't have one.
func ReadMutableHead(ctx context.Context, fsys ocfl.FS, objPath string) (*Inventory, error) {
	invPath := path.Join(mutableHeadStagingDir(objPath), inventoryFile)
	vops := []ValidationOption{FallbackOCFL(defaultSpec)}
	inv, result := ValidateInventory(ctx, fsys, invPath, vops...)
	if err := result.Err(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoMutableHead
		}
		return nil, &ExtensionError{Name: mutableHeadExtName, Err: err}
	}
	rev, err := latestRevision(ctx, fsys, objPath)
	if err != nil {
		return nil, &ExtensionError{Name: mutableHeadExtName, Err: err}
	}
	inv.MutableHead = true
	inv.RevisionNum = rev
	return inv, nil
}

// latestRevision scans the mutable head's revisions directory for the
// highest-numbered revision marker.
func latestRevision(ctx context.Context, fsys ocfl.FS, objPath string) (ocfl.VNum, error) {
	entries, err := ocflfs.ReadDir(ctx, fsys, mutableHeadRevisionsDir(objPath))
	if err != nil {
		return ocfl.VNum{}, err
	}
	var nums ocfl.VNums
	for _, e := range entries {
		var v ocfl.VNum
		if err := ocfl.ParseRNum(e.Name(), &v); err != nil {
			return ocfl.VNum{}, fmt.Errorf("unrecognized revision marker %q: %w", e.Name(), err)
		}
		nums = append(nums, v)
	}
	if len(nums) == 0 {
		return ocfl.VNum{}, errors.New("revisions directory is empty")
	}
	sort.Sort(nums)
	return nums[len(nums)-1], nil
}

// stageRevision builds the inventory for a new mutable-head revision. It
// follows the same new-content bookkeeping as NewInventory, but manifest
// paths for new content point into the revision's own directory under the
// mutable-head extension rather than into a version directory, since that
// content isn't promoted into a version directory until CommitMutableHead
// runs the mutable-head commit rewrite.
func stageRevision(base *Inventory, rev ocfl.VNum, newVersion *Version, fixity ocfl.FixitySource, pathFn func([]string) []string) (*Inventory, error) {
	if base == nil {
		return nil, errors.New("base inventory is required")
	}
	if newVersion == nil || newVersion.State == nil {
		return nil, errors.New("new version state is required")
	}
	head := base.Head
	if !base.MutableHead {
		var err error
		head, err = base.Head.Next()
		if err != nil {
			return nil, fmt.Errorf("inventory versioning scheme does not support versions beyond %s: %w", base.Head, err)
		}
	}
	newInv := &Inventory{
		ID:               base.ID,
		Type:             base.Type,
		DigestAlgorithm:  base.DigestAlgorithm,
		Head:             head,
		ContentDirectory: base.ContentDirectory,
		Manifest:         base.Manifest.Merge(ocfl.DigestMap{}),
		Versions:         make(map[ocfl.VNum]*Version, len(base.Versions)+1),
		Fixity:           make(map[string]ocfl.DigestMap, len(base.Fixity)),
		MutableHead:      true,
		RevisionNum:      rev,
	}
	for v, ver := range base.Versions {
		newInv.Versions[v] = ver
	}
	for alg, m := range base.Fixity {
		newInv.Fixity[alg] = m.Merge(ocfl.DigestMap{})
	}
	newInv.Versions[head] = newVersion

	var newDigests []string
	for dig := range newVersion.State {
		if !newInv.Manifest.DigestExists(dig) {
			newDigests = append(newDigests, dig)
		}
	}
	sort.Strings(newDigests)
	for _, dig := range newDigests {
		logicalPaths := append([]string(nil), newVersion.State[dig]...)
		sort.Strings(logicalPaths)
		contentPaths := append([]string(nil), logicalPaths...)
		if pathFn != nil {
			contentPaths = pathFn(contentPaths)
		}
		for _, p := range contentPaths {
			manPath := mutableHeadRevisionContentPrefix(rev) + p
			newInv.Manifest[dig] = append(newInv.Manifest[dig], manPath)
		}
		if fixity == nil {
			continue
		}
		for alg, sum := range fixity.GetFixity(dig) {
			if newInv.Fixity[alg] == nil {
				newInv.Fixity[alg] = ocfl.DigestMap{}
			}
			newInv.Fixity[alg][sum] = append(newInv.Fixity[alg][sum], newInv.Manifest[dig]...)
		}
	}
	return newInv, nil
}

// StageChanges stages a new mutable-head revision for the existing object at
// objPath, creating the mutable head if the object doesn't already have one.
// New content is written into the revision's own directory under
// extensions/0005-mutable-head before the mutable head's inventory is
// updated, mirroring Commit's write ordering so a crash mid-write leaves the
// previous revision (or the object's last committed version, if this is the
// first staged revision) intact. The error returned is always a CommitError.
func StageChanges(ctx context.Context, fsys ocfl.WriteFS, objPath string, objID string, stage *ocfl.Stage, optFuncs ...CommitOption) (err error) {
	opts := &commitOpt{
		created:    time.Now().UTC(),
		contentDir: contentDir,
		logger:     logging.DisabledLogger(),
	}
	for _, optFunc := range optFuncs {
		optFunc(opts)
	}
	opts.created = opts.created.Truncate(time.Second)
	opts.logger = opts.logger.With("object_path", objPath, "object_id", objID, "op", "stage_changes")

	if stage.State == nil {
		stage.State = ocfl.DigestMap{}
	}
	existObj, err := GetObject(ctx, fsys, objPath)
	if err != nil {
		return &CommitError{Err: fmt.Errorf("staging changes requires an existing object: %w", err)}
	}
	if existObj.Inventory.ID != objID {
		err := fmt.Errorf("object at %q has id %q, not the id given: %q", objPath, existObj.Inventory.ID, objID)
		return &CommitError{Err: err}
	}
	if existObj.Inventory.DigestAlgorithm != stage.DigestAlgorithm {
		err := fmt.Errorf("object's digest algorithm (%s) doesn't match stage's (%s)", existObj.Inventory.DigestAlgorithm, stage.DigestAlgorithm)
		return &CommitError{Err: err}
	}

	var baseInv *Inventory
	var nextRev ocfl.VNum
	switch hasHead, err := HasMutableHead(ctx, fsys, objPath); {
	case err != nil:
		return &CommitError{Err: err}
	case hasHead:
		headInv, err := ReadMutableHead(ctx, fsys, objPath)
		if err != nil {
			return &CommitError{Err: fmt.Errorf("reading existing mutable head: %w", err)}
		}
		if headInv.ID != objID {
			err := fmt.Errorf("mutable head at %q has id %q, not the id given: %q", objPath, headInv.ID, objID)
			return &CommitError{Err: err}
		}
		baseInv = headInv
		if nextRev, err = headInv.RevisionNum.Next(); err != nil {
			return &CommitError{Err: err}
		}
	default:
		baseInv = &existObj.Inventory
		nextRev = ocfl.R(1)
	}

	if !opts.allowUnchanged {
		if last := baseInv.Versions[baseInv.Head]; last != nil && last.State.Eq(stage.State) {
			err := errors.New("staged revision would have the same state as the current mutable head")
			return &CommitError{Err: err}
		}
	}

	newVersion := &Version{
		State:   stage.State,
		Message: opts.message,
		User:    opts.user,
		Created: opts.created,
	}
	newInv, err := stageRevision(baseInv, nextRev, newVersion, stage.FixitySource, opts.pathFn)
	if err != nil {
		return &CommitError{Err: fmt.Errorf("building staged revision: %w", err)}
	}
	opts.logger = opts.logger.With("revision", nextRev, "head", newInv.Head)

	xfers, err := xferMap(newInv, mutableHeadRevisionContentPrefix(nextRev))
	if err != nil {
		return &CommitError{Err: err}
	}
	if len(xfers) > 0 && stage.ContentSource == nil {
		return &CommitError{Err: errors.New("stage is missing a source for new content")}
	}
	for digest := range xfers {
		if !stage.HasContent(digest) {
			err := fmt.Errorf("stage's content source can't provide digest: %s", digest)
			return &CommitError{Err: err}
		}
	}

	// a revision marker is written first: PurgeMutableHead and
	// latestRevision rely on it to know which revisions actually completed.
	marker := path.Join(mutableHeadRevisionsDir(objPath), nextRev.String())
	if _, err := fsys.Write(ctx, marker, strings.NewReader("")); err != nil {
		return &CommitError{Err: fmt.Errorf("writing revision marker: %w", err), Dirty: true}
	}
	if len(xfers) > 0 {
		xferOpts := &commitCopyOpts{
			Source:   stage,
			DestFS:   fsys,
			DestRoot: objPath,
			Manifest: xfers,
		}
		if err := commitCopy(ctx, xferOpts); err != nil {
			return &CommitError{Err: fmt.Errorf("transferring staged revision contents: %w", err), Dirty: true}
		}
	}
	if err := WriteInventory(ctx, fsys, newInv, mutableHeadStagingDir(objPath)); err != nil {
		return &CommitError{Err: fmt.Errorf("writing mutable head inventory: %w", err), Dirty: true}
	}
	return nil
}

// CommitMutableHead performs the mutable-head commit rewrite rule: the
// content StageChanges wrote into the mutable head's revision directories is
// copied into a real version directory, manifest paths that pointed into
// those revision directories are rewritten to point into the version
// directory instead, and the mutable-head extension directory is then
// removed. Manifest entries that already pointed outside the mutable head
// (content inherited from earlier, already-committed versions) are left
// unchanged. The error returned is always a CommitError.
func CommitMutableHead(ctx context.Context, fsys ocfl.WriteFS, objPath string, optFuncs ...CommitOption) (err error) {
	opts := &commitOpt{
		created: time.Now().UTC(),
		logger:  logging.DisabledLogger(),
	}
	for _, optFunc := range optFuncs {
		optFunc(opts)
	}
	existObj, err := GetObject(ctx, fsys, objPath)
	if err != nil {
		return &CommitError{Err: err}
	}
	headInv, err := ReadMutableHead(ctx, fsys, objPath)
	if err != nil {
		return &CommitError{Err: err}
	}
	if want, _ := existObj.Inventory.Head.Next(); headInv.Head != want {
		err := fmt.Errorf("mutable head declares version %s, but the object's next version should be %s", headInv.Head, want)
		return &CommitError{Err: &ocfl.ObjectOutOfSyncError{ObjectID: headInv.ID, Err: err}}
	}

	newVDir := path.Join(objPath, headInv.Head.String())
	newInv := &Inventory{
		ID:               headInv.ID,
		Type:             headInv.Type,
		DigestAlgorithm:  headInv.DigestAlgorithm,
		Head:             headInv.Head,
		ContentDirectory: headInv.ContentDirectory,
		Manifest:         make(ocfl.DigestMap, len(headInv.Manifest)),
		Versions:         headInv.Versions,
		Fixity:           headInv.Fixity,
	}
	rewrites := map[string]string{} // old manifest path -> new manifest path
	prefix := mutableHeadRevisionContentPrefix(headInv.RevisionNum)
	for dig, paths := range headInv.Manifest {
		newPaths := make([]string, len(paths))
		for i, p := range paths {
			if rel, ok := strings.CutPrefix(p, prefix); ok {
				newPath := path.Join(headInv.Head.String(), headInv.ContentDirectory, rel)
				rewrites[p] = newPath
				newPaths[i] = newPath
				continue
			}
			newPaths[i] = p
		}
		newInv.Manifest[dig] = newPaths
	}
	for alg, m := range headInv.Fixity {
		rewritten := make(ocfl.DigestMap, len(m))
		for dig, paths := range m {
			newPaths := make([]string, len(paths))
			for i, p := range paths {
				if np, ok := rewrites[p]; ok {
					newPaths[i] = np
					continue
				}
				newPaths[i] = p
			}
			rewritten[dig] = newPaths
		}
		if newInv.Fixity == nil {
			newInv.Fixity = map[string]ocfl.DigestMap{}
		}
		newInv.Fixity[alg] = rewritten
	}

	for oldPath, newPath := range rewrites {
		if err := ocfl.Copy(ctx, fsys, path.Join(objPath, newPath), fsys, path.Join(objPath, oldPath)); err != nil {
			return &CommitError{Err: fmt.Errorf("copying staged content %q: %w", oldPath, err), Dirty: true}
		}
	}
	if err := WriteInventory(ctx, fsys, newInv, objPath, newVDir); err != nil {
		return &CommitError{Err: fmt.Errorf("writing promoted version inventory: %w", err), Dirty: true}
	}
	if err := fsys.RemoveAll(ctx, mutableHeadDir(objPath)); err != nil {
		return &CommitError{Err: fmt.Errorf("removing mutable head after promotion: %w", err), Dirty: true}
	}
	return nil
}

// PurgeMutableHead discards the object's staged mutable head, if any,
// leaving the object exactly as it was after its last committed version.
// It's a no-op (not an error) if the object has no mutable head.
func PurgeMutableHead(ctx context.Context, fsys ocfl.WriteFS, objPath string) error {
	if has, err := HasMutableHead(ctx, fsys, objPath); err != nil || !has {
		return err
	}
	return fsys.RemoveAll(ctx, mutableHeadDir(objPath))
}
