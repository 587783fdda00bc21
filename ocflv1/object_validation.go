package ocflv1

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/digest"
	ocflfs "github.com/ocfl-archive/ocflgo/fs"
	"github.com/ocfl-archive/ocflgo/ocflv1/codes"
	"github.com/ocfl-archive/ocflgo/validation"
)

// ValidateObject fully validates the OCFL object at path in fsys: the object
// declaration, the root inventory, every version directory and its
// inventory (if present), and (unless SkipDigests is set) the digests of
// every file named in the root inventory's manifest.
func ValidateObject(ctx context.Context, fsys ocfl.FS, objPath string, vops ...ValidationOption) (*Object, *validation.Result) {
	opts, result := validationSetup(vops)
	lgr := opts.Logger
	root := &ocfl.ObjectRoot{FS: fsys, Path: objPath}
	if err := root.ReadRoot(ctx); err != nil {
		return nil, logFatal(lgr, result, err)
	}
	if !root.State.HasNamaste() {
		err := fmt.Errorf("%w: %s", ocfl.ErrObjectNamasteNotExist, objPath)
		return nil, logFatal(lgr, result, validation.NewErrorCode(err, codes.E003(opts.FallbackOCFL)))
	}
	ocflV := root.State.Spec
	if !ocflVerSupported[ocflV] {
		err := fmt.Errorf("%w: %s", ErrOCFLVersion, ocflV)
		return nil, logFatal(lgr, result, validation.NewErrorCode(err, codes.E004(opts.FallbackOCFL)))
	}
	decl := ocfl.Namaste{Type: ocfl.NamasteTypeObject, Version: ocflV}
	if err := ocfl.ValidateNamaste(ctx, fsys, path.Join(objPath, decl.Name())); err != nil {
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E007(ocflV)))
	}
	for _, name := range root.State.Invalid {
		err := fmt.Errorf("%w: %s", ErrObjRootStructure, name)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E001(ocflV)))
	}
	if err := root.State.VersionDirs.Valid(); err != nil {
		switch {
		case errors.Is(err, ocfl.ErrVerEmpty):
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E008(ocflV)))
		case errors.Is(err, ocfl.ErrVNumMissing):
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E010(ocflV)))
		case errors.Is(err, ocfl.ErrVNumPadding):
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E011(ocflV)))
		default:
			logFatal(lgr, result, err)
		}
	}
	if !root.State.HasInventory() {
		logFatal(lgr, result, validation.NewErrorCode(ErrInventoryNotExist, codes.E063(ocflV)))
	}
	if result.Err() != nil {
		return nil, result
	}

	invOpts := []ValidationOption{copyValidationOptions(opts), appendResult(result), FallbackOCFL(ocflV)}
	rootInv, _ := ValidateInventory(ctx, fsys, path.Join(objPath, inventoryFile), invOpts...)
	if result.Err() != nil || rootInv == nil {
		return nil, result
	}

	// ledger cross-checks that every inventory encountered while validating
	// this object (root and each version's own copy) agrees on the digest
	// for any content path they both reference.
	ledger := &pathLedger{}
	if err := ledger.addInventory(rootInv, true); err != nil {
		logFatal(lgr, result, err)
	}
	if expHead := root.State.VersionDirs.Head(); expHead != rootInv.Head {
		err := fmt.Errorf("inventory head (%s) doesn't match expected version (%s)", rootInv.Head, expHead)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E040(ocflV)))
	}
	if rootInv.Type.Spec != ocflV {
		err := fmt.Errorf("inventory declares OCFL spec %s, object declares %s", rootInv.Type.Spec, ocflV)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E038(ocflV)))
	}
	for _, v := range root.State.VersionDirs {
		if _, exists := rootInv.Versions[v]; !exists {
			err := fmt.Errorf("version directory not present in inventory: %s", v)
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E046(ocflV)))
		}
	}

	prevSpec := ocflV
	for _, v := range rootInv.VNums() {
		vSpec, verInv := validateObjectVersion(ctx, root, rootInv, v, opts, result)
		if !vSpec.Empty() {
			if vSpec.Cmp(prevSpec) < 0 {
				err := fmt.Errorf("%s uses an earlier OCFL spec version than its predecessor", v)
				logFatal(lgr, result, validation.NewErrorCode(err, codes.E103(vSpec)))
			}
			prevSpec = vSpec
		}
		if verInv != nil && v != rootInv.Head {
			rootVer := rootInv.Versions[v]
			ownVer := verInv.Versions[v]
			if rootVer != nil && ownVer != nil && !rootVer.State.Eq(ownVer.State) {
				err := fmt.Errorf("version %s state doesn't match root inventory's record of it", v)
				logFatal(lgr, result, validation.NewErrorCode(err, codes.E066(ocflV)))
			}
		}
		if verInv != nil {
			if err := ledger.addInventory(verInv, false); err != nil {
				var changed *ChangedDigestErr
				if errors.As(err, &changed) {
					logFatal(lgr, result, fmt.Errorf("version %s: %w", v, changed))
					continue
				}
				logFatal(lgr, result, err)
			}
		}
	}

	if err := validateExtensionsDir(ctx, fsys, objPath, ocflV, lgr, result); err != nil {
		return nil, result
	}

	obj := &Object{ObjectRoot: root, Inventory: *rootInv}
	if !opts.SkipDigests {
		validateObjectContent(ctx, obj, opts, result)
	}
	return obj, result
}

// validateObjectVersion validates the structure of a single version
// directory and, if it has its own inventory, validates that inventory and
// returns its declared OCFL spec.
func validateObjectVersion(ctx context.Context, root *ocfl.ObjectRoot, rootInv *Inventory, v ocfl.VNum, opts *validationOptions, result *validation.Result) (ocfl.Spec, *Inventory) {
	lgr := opts.Logger
	ocflV := root.State.Spec
	entries, err := root.ReadDir(ctx, v.String())
	if err != nil {
		logFatal(lgr, result, err)
		return ocfl.Spec{}, nil
	}
	var hasInventory bool
	var sidecarAlg string
	var contentDirFound bool
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			if name == rootInv.ContentDirectory {
				contentDirFound = true
				continue
			}
			err := fmt.Errorf("unexpected directory in version %s: %s", v, name)
			logWarn(lgr, result, validation.NewErrorCode(err, codes.E015(ocflV)))
		case name == inventoryFile:
			hasInventory = true
		case strings.HasPrefix(name, inventoryFile+"."):
			sidecarAlg = strings.TrimPrefix(name, inventoryFile+".")
		default:
			err := fmt.Errorf("unexpected file in version %s: %s", v, name)
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E015(ocflV)))
		}
	}
	if !contentDirFound {
		if ver := rootInv.Versions[v]; ver != nil && len(ver.State) > 0 {
			err := fmt.Errorf("version %s missing content directory: %s", v, rootInv.ContentDirectory)
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E023(ocflV)))
		}
	}
	if !hasInventory {
		logWarn(lgr, result, validation.NewErrorCode(fmt.Errorf("version %s missing its own inventory", v), codes.E064(ocflV)))
		return ocfl.Spec{}, nil
	}
	if sidecarAlg == "" {
		err := fmt.Errorf("version %s missing inventory digest sidecar", v)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E058(ocflV)))
	}
	verOpts := []ValidationOption{copyValidationOptions(opts), appendResult(result), FallbackOCFL(ocflV)}
	verInv, _ := ValidateInventory(ctx, root.FS, path.Join(root.Path, v.String(), inventoryFile), verOpts...)
	if verInv == nil {
		return ocfl.Spec{}, nil
	}
	if sidecarAlg != "" && sidecarAlg != verInv.DigestAlgorithm {
		err := fmt.Errorf("version %s inventory digest sidecar names algorithm %q, inventory declares %q", v, sidecarAlg, verInv.DigestAlgorithm)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E058(verInv.Type.Spec)))
	}
	if verInv.ID != rootInv.ID {
		err := fmt.Errorf("version %s inventory declares a different object id: %s", v, verInv.ID)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E037(verInv.Type.Spec)))
	}
	if verInv.ContentDirectory != rootInv.ContentDirectory {
		err := fmt.Errorf("version %s inventory's contentDirectory (%s) doesn't match object's (%s)", v, verInv.ContentDirectory, rootInv.ContentDirectory)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E019(verInv.Type.Spec)))
	}
	if verInv.Head != v {
		err := fmt.Errorf("version %s inventory declares head as %s", v, verInv.Head)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E040(verInv.Type.Spec)))
	}
	if v == rootInv.Head && verInv.digest != rootInv.digest {
		err := fmt.Errorf("inventory in head version (%s) isn't identical to the object's root inventory", v)
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E064(verInv.Type.Spec)))
	}
	return verInv.Type.Spec, verInv
}

func validateExtensionsDir(ctx context.Context, fsys ocfl.FS, objPath string, ocflV ocfl.Spec, lgr *slog.Logger, result *validation.Result) error {
	entries, err := ocflfs.ReadDir(ctx, fsys, path.Join(objPath, ocfl.ExtensionsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		logFatal(lgr, result, err)
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			err := fmt.Errorf("unexpected file in extensions directory: %s", e.Name())
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E067(ocflV)))
		}
	}
	return nil
}

// validateObjectContent validates the digests of every file named in the
// object's root inventory manifest (and fixity block).
func validateObjectContent(ctx context.Context, obj *Object, opts *validationOptions, result *validation.Result) {
	lgr := opts.Logger
	ocflV := obj.Inventory.Type.Spec
	alg, err := opts.AlgRegistry.Get(obj.Inventory.DigestAlgorithm)
	if err != nil {
		logFatal(lgr, result, err)
		return
	}
	var refs []*digest.FileRef
	for dig, paths := range obj.Inventory.Manifest {
		if len(paths) == 0 {
			continue
		}
		fixity := ocfl.DigestSet(obj.Inventory.Manifest.GetFixity(dig, obj.Inventory.Fixity))
		for _, p := range paths {
			ref := &digest.FileRef{
				FileRef: ocflfs.FileRef{
					FS:      obj.FS,
					BaseDir: obj.Path,
					Path:    p,
				},
				Digests: digest.Set{alg.ID(): dig},
			}
			if len(fixity) > 0 {
				ref.Fixity = digest.Set(fixity)
			}
			refs = append(refs, ref)
		}
	}
	seq := func(yield func(*digest.FileRef) bool) {
		for _, r := range refs {
			if !yield(r) {
				return
			}
		}
	}
	for err := range digest.ValidateFilesBatch(ctx, seq, opts.AlgRegistry, 0) {
		var digestErr *digest.DigestError
		if errors.As(err, &digestErr) {
			if digestErr.IsFixity {
				logFatal(lgr, result, validation.NewErrorCode(err, codes.E093(ocflV)))
			} else {
				logFatal(lgr, result, validation.NewErrorCode(err, codes.E092(ocflV)))
			}
			continue
		}
		if errors.Is(err, fs.ErrNotExist) {
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E092(ocflV)))
			continue
		}
		logFatal(lgr, result, err)
	}
}
