package ocflv1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/digest"
	ocflfs "github.com/ocfl-archive/ocflgo/fs"
	"golang.org/x/sync/errgroup"
)

// reconstructObjectVersion reconstructs the logical state of the object's
// version v (0 for head) under stagingDir in dstFS, using logical paths as
// file names. Each file's content is streamed through a digest-validating
// reader as it's copied, so storage corruption is caught at reconstruction
// time instead of silently propagating into whatever consumes stagingDir.
// reg is used to resolve the algorithms named in the inventory; a nil reg
// uses digest.DefaultRegistry.
func reconstructObjectVersion(ctx context.Context, obj *Object, v int, dstFS ocfl.WriteFS, stagingDir string, reg digest.AlgorithmRegistry) error {
	ver := obj.Inventory.Version(v)
	if ver == nil {
		return fmt.Errorf("reconstructing version: %w", ErrVersionNotFound)
	}
	if reg == nil {
		reg = digest.DefaultRegistry()
	}
	grp, ctx := errgroup.WithContext(ctx)
	ver.State.EachPath(func(logical, sum string) bool {
		grp.Go(func() error { return reconstructFile(ctx, obj, logical, sum, dstFS, stagingDir, reg) })
		return true
	})
	return grp.Wait()
}

func reconstructFile(ctx context.Context, obj *Object, logical, sum string, dstFS ocfl.WriteFS, stagingDir string, reg digest.AlgorithmRegistry) error {
	lp, err := ocfl.NewLPath(logical)
	if err != nil {
		return fmt.Errorf("logical path %q: %w", logical, err)
	}
	srcFS, srcPath := obj.GetContent(sum)
	if srcFS == nil {
		return fmt.Errorf("object manifest is missing content for logical path %q", logical)
	}
	src, err := srcFS.OpenFile(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("opening %q: %w", srcPath, err)
	}
	defer src.Close()
	expect := digest.Set{obj.Inventory.DigestAlgorithm: sum}
	for alg, fixSum := range obj.Inventory.Manifest.GetFixity(sum, obj.Inventory.Fixity) {
		expect[alg] = fixSum
	}
	digester := digest.NewMultiDigester(reg.GetAny(expect.Algorithms()...)...)
	dstPath := path.Join(stagingDir, lp.String())
	if _, err := dstFS.Write(ctx, dstPath, io.TeeReader(src, digester)); err != nil {
		return fmt.Errorf("writing %q: %w", dstPath, err)
	}
	got := digester.Sums()
	if conflicts := got.ConflictsWith(expect); len(conflicts) > 0 {
		alg := conflicts[0]
		return &digest.DigestError{Path: logical, Alg: alg, Got: got[alg], Expected: expect[alg]}
	}
	return nil
}

// ExportVersion reconstructs the object's version v (0 for head) under
// stagingDir in dstFS, validating content fixity as it's copied. See
// reconstructObjectVersion.
func ExportVersion(ctx context.Context, obj *Object, v int, dstFS ocfl.WriteFS, stagingDir string) error {
	return reconstructObjectVersion(ctx, obj, v, dstFS, stagingDir, digest.DefaultRegistry())
}

// ExportObject reconstructs the object's head version under stagingDir in
// dstFS. It's a convenience wrapper around ExportVersion.
func ExportObject(ctx context.Context, obj *Object, dstFS ocfl.WriteFS, stagingDir string) error {
	return ExportVersion(ctx, obj, 0, dstFS, stagingDir)
}

// RollbackToVersion discards every version after v, rewriting the object's
// root inventory to version v's own record of itself and removing the later
// version directories and any staged mutable head (a mutable head staged
// against the discarded head would no longer make sense once the head moves
// back to v). The error returned is always a CommitError.
func RollbackToVersion(ctx context.Context, fsys ocfl.WriteFS, objPath string, objID string, v ocfl.VNum) (err error) {
	existObj, err := GetObject(ctx, fsys, objPath)
	if err != nil {
		return &CommitError{Err: err}
	}
	if existObj.Inventory.ID != objID {
		err := fmt.Errorf("object at %q has id %q, not the id given: %q", objPath, existObj.Inventory.ID, objID)
		return &CommitError{Err: err}
	}
	if _, exists := existObj.Inventory.Versions[v]; !exists {
		err := &ocfl.InvalidVersionError{Version: v, Err: errors.New("version not found in object")}
		return &CommitError{Err: err}
	}
	if v == existObj.Inventory.Head {
		err := fmt.Errorf("object is already at version %s", v)
		return &CommitError{Err: err}
	}

	vInvPath := path.Join(objPath, v.String(), inventoryFile)
	vops := []ValidationOption{FallbackOCFL(existObj.Inventory.Type.Spec)}
	verInv, result := ValidateInventory(ctx, fsys, vInvPath, vops...)
	if err := result.Err(); err != nil {
		err = fmt.Errorf("reading version %s's own inventory: %w", v, err)
		return &CommitError{Err: err}
	}

	if err := WriteInventory(ctx, fsys, verInv, objPath); err != nil {
		err = fmt.Errorf("writing rolled-back root inventory: %w", err)
		return &CommitError{Err: err, Dirty: true}
	}
	for _, dv := range existObj.Inventory.VNums() {
		if dv.Num() <= v.Num() {
			continue
		}
		if err := fsys.RemoveAll(ctx, path.Join(objPath, dv.String())); err != nil {
			err = fmt.Errorf("removing version directory %s: %w", dv, err)
			return &CommitError{Err: err, Dirty: true}
		}
	}
	if err := PurgeMutableHead(ctx, fsys, objPath); err != nil {
		err = fmt.Errorf("removing mutable head after rollback: %w", err)
		return &CommitError{Err: err, Dirty: true}
	}
	return nil
}

// PurgeObject permanently removes the object rooted at objPath, including
// any staged mutable head. It's a no-op, not an error, if objPath doesn't
// have an object.
func PurgeObject(ctx context.Context, fsys ocfl.WriteFS, objPath string) error {
	if _, err := GetObject(ctx, fsys, objPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return fsys.RemoveAll(ctx, objPath)
}

// ImportObject copies the complete object rooted at srcPath in srcFS to
// dstPath in dstFS, file for file, then validates the copy in place. dstPath
// must not already have an object. If validation of the copy fails, the
// error returned wraps the error from ValidateObject's result
// (validation.Result.Err); other errors are returned wrapped with context.
func ImportObject(ctx context.Context, srcFS ocfl.FS, srcPath string, dstFS ocfl.WriteFS, dstPath string, vops ...ValidationOption) (*Object, error) {
	if _, err := GetObject(ctx, dstFS, dstPath); err == nil {
		return nil, fmt.Errorf("import destination %q already has an object", dstPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking import destination: %w", err)
	}
	grp, ctx := errgroup.WithContext(ctx)
	for ref, err := range ocflfs.WalkFiles(ctx, srcFS, srcPath) {
		if err != nil {
			return nil, fmt.Errorf("walking source object: %w", err)
		}
		rel := ref.Path
		srcName := ref.FullPath()
		dstName := path.Join(dstPath, rel)
		grp.Go(func() error { return ocfl.Copy(ctx, dstFS, dstName, srcFS, srcName) })
	}
	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("copying object content: %w", err)
	}
	newObj, result := ValidateObject(ctx, dstFS, dstPath, vops...)
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("validating imported object: %w", err)
	}
	return newObj, nil
}
