package ocflv1

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/extension"
	ocflfs "github.com/ocfl-archive/ocflgo/fs"
	"github.com/ocfl-archive/ocflgo/ocflv1/codes"
	"github.com/ocfl-archive/ocflgo/validation"
)

// ValidateStore fully validates the OCFL storage root at root in fsys.
func ValidateStore(ctx context.Context, fsys ocfl.FS, root string, vops ...ValidationOption) *validation.Result {
	opts, result := validationSetup(vops)
	lgr := opts.Logger
	inf, err := ocflfs.ReadDir(ctx, fsys, root)
	if err != nil {
		return logFatal(lgr, result, err)
	}
	// E069: An OCFL Storage Root MUST contain a Root Conformance Declaration
	// identifying it as such.
	// E076: [The OCFL version declaration] MUST be a file in the base
	// directory of the OCFL Storage Root giving the OCFL version in the
	// filename.
	decl, err := ocfl.FindNamaste(inf)
	if err != nil {
		err := fmt.Errorf("not an ocfl storage root: %w", err)
		return logFatal(lgr, result, validation.NewErrorCode(err, codes.E076(ocflv1_0)))
	}
	if decl.Type != storeRoot {
		err := fmt.Errorf("not an ocfl storage root: %s", root)
		return logFatal(lgr, result, validation.NewErrorCode(err, codes.E069(ocflv1_0)))
	}
	ocflV := decl.Version

	// E075: The OCFL version declaration MUST be formatted according to the
	// NAMASTE specification.
	// E080: The text contents of [the OCFL version declaration file] MUST be
	// the same as dvalue, followed by a newline (\n).
	if err := ocfl.ValidateNamaste(ctx, fsys, path.Join(root, decl.Name())); err != nil {
		logFatal(lgr, result, validation.NewErrorCode(err, codes.E080(ocflV)))
	}

	var hasExtensions, hasLayout bool
	for _, entry := range inf {
		if entry.IsDir() && entry.Name() == extensionsDir {
			hasExtensions = true
			continue
		}
		if entry.Type().IsRegular() && entry.Name() == layoutName {
			hasLayout = true
		}
	}
	// E067: The extensions directory must not contain any files, and no
	// sub-directories other than extension sub-directories.
	if hasExtensions {
		entries, err := ocflfs.ReadDir(ctx, fsys, path.Join(root, extensionsDir))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return logFatal(lgr, result, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				err := fmt.Errorf("unexpected file in extensions directory: %s", e.Name())
				return logFatal(lgr, result, validation.NewErrorCode(err, codes.E067(ocflV)))
			}
		}
	}

	// E068: The specific structure and function of the extension, as well as
	// a declaration of the registered extension name must be defined in one
	// of the following locations: The OCFL Extensions repository OR the
	// Storage Root, as a plain text document directly in the Storage Root.
	// E070: If present, [the ocfl_layout.json document] MUST include the
	// following two keys in the root JSON object: [extension, description]
	// E071: The value of the [ocfl_layout.json] extension key must be the
	// registered extension name for the extension defining the arrangement
	// under the storage root.
	var layout storeConfig
	var layoutExt extension.Layout
	if hasLayout {
		if err := readStoreConfig(ctx, fsys, root, &layout); err != nil {
			logFatal(lgr, result, err)
		}
		if _, ok := layout[descriptionKey]; !ok {
			err := errors.New(`storage root ocfl_layout.json missing key: "description"`)
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E070(ocflV)))
		}
		name, ok := layout[extensionKey]
		if !ok {
			err := errors.New(`storage root ocfl_layout.json missing key: "extension"`)
			logFatal(lgr, result, validation.NewErrorCode(err, codes.E070(ocflV)))
		} else {
			lyt, err := readLayout(ctx, fsys, root, name)
			if err != nil {
				err := fmt.Errorf("storage root has misconfigured layout extension: %w", err)
				return logFatal(lgr, result, validation.NewErrorCode(err, codes.E071(ocflV)))
			}
			layoutExt = lyt
		}
	}

	// E072: The directory hierarchy used to store OCFL Objects MUST NOT
	// contain files that are not part of an OCFL Object.
	// E073: Empty directories MUST NOT appear under a storage root.
	// E081: OCFL Objects within the OCFL Storage Root also include a
	// conformance declaration which MUST indicate OCFL Object conformance to
	// the same or earlier version of the specification.
	// E084: Storage hierarchies MUST NOT include files within intermediate
	// directories.
	// E085: Storage hierarchies MUST be terminated by OCFL Object Roots.
	// E088: An OCFL Storage Root MUST NOT contain directories or
	// sub-directories other than as a directory hierarchy used to store OCFL
	// Objects or for storage root extensions.
	objPaths, scanErr := ScanObjects(ctx, fsys, root, &ScanObjectsOpts{Strict: true})
	if scanErr != nil {
		switch {
		case errors.Is(scanErr, ErrEmptyDirs):
			logFatal(lgr, result, validation.NewErrorCode(scanErr, codes.E073(ocflV)))
		case errors.Is(scanErr, ErrNonObject):
			logFatal(lgr, result, validation.NewErrorCode(scanErr, codes.E084(ocflV)))
		default:
			logFatal(lgr, result, scanErr)
		}
		return result
	}
	for objPath, objSpec := range objPaths {
		if ocflV.Cmp(objSpec) < 0 {
			// object ocfl spec is higher than storage root's
			logFatal(lgr, result, fmt.Errorf("%s: %w", objPath, ErrObjectVersion))
			continue
		}
		if opts.SkipObjects {
			continue
		}
		objValidOpts := []ValidationOption{
			copyValidationOptions(opts),
			appendResult(result),
		}
		obj, objResult := ValidateObject(ctx, fsys, path.Join(root, objPath), objValidOpts...)
		if objResult.Err() != nil {
			continue
		}
		if layoutExt != nil {
			p, err := layoutExt.Resolve(obj.Inventory.ID)
			if err != nil {
				err := fmt.Errorf("object id '%s' is not compatible with the storage root layout: %w", obj.Inventory.ID, err)
				logWarn(lgr, result, err)
				continue
			}
			if expPath := path.Join(root, p); expPath != path.Join(root, objPath) {
				err := fmt.Errorf("object path '%s' does not conform with storage root layout. expected '%s'", objPath, expPath)
				logWarn(lgr, result, err)
			}
		}
	}
	return result
}
