package ocfl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	ocflfs "github.com/ocfl-archive/ocflgo/fs"
)

const (
	// HasNamaste indicates that an object root directory includes a NAMASTE
	// object declaration file
	HasNamaste objectRootFlag = 1 << iota
	// HasInventory indicates that an object root includes an "inventory.json"
	// file
	HasInventory
	// HasSidecar indicates that an object root includes an "inventory.json.*"
	// file (the inventory sidecar).
	HasSidecar
	// HasExtensions indicates that an object root includes a directory
	// named "extensions"
	HasExtensions

	inventoryFileName = "inventory.json"
	sidecarPrefix     = inventoryFileName + "."
	objectDeclPrefix  = "0=" + NamasteTypeObject
	ExtensionsDir     = "extensions"

	maxObjectRootStateInvalid = 8
)

var ErrObjectNamasteNotExist = ErrNamasteNotExist

// ObjectRoot represents an OCFL object root directory.
type ObjectRoot struct {
	// FS is the FS for accessing the object's contents.
	FS FS
	// Path is the path in the FS for the object root directory.
	Path string
	// State provides details about an existing object root as determined by
	// reading the contents of the directory with ReadRoot(). State may be nil
	// if the object root has not been read or if an error occurred while
	// reading it.
	State *ObjectRootState

	stateErr error
}

// GetObjectRoot reads the contents of directory dir in fsys, confirms that an
// OCFL object declaration is present, and returns a new ObjectRoot reference
// with an initialized State. The object declaration is not read or fully
// validated.
func GetObjectRoot(ctx context.Context, fsys FS, dir string) (*ObjectRoot, error) {
	obj := &ObjectRoot{FS: fsys, Path: dir}
	if err := obj.mustHaveNamaste(ctx); err != nil {
		return nil, err
	}
	return obj, nil
}

// ValidateNamaste reads and validates the contents of the OCFL object
// declaration in the object root.
func (obj *ObjectRoot) ValidateNamaste(ctx context.Context) error {
	if err := obj.mustHaveNamaste(ctx); err != nil {
		return err
	}
	decl := Namaste{Type: NamasteTypeObject, Version: obj.State.Spec}.Name()
	return ValidateNamaste(ctx, obj.FS, path.Join(obj.Path, decl))
}

// ExtensionNames returns the names of directories in the object root's
// extensions directory.
func (obj ObjectRoot) ExtensionNames(ctx context.Context) ([]string, error) {
	if err := obj.mustHaveNamaste(ctx); err != nil {
		return nil, err
	}
	if !obj.State.HasExtensions() {
		return nil, nil
	}
	entries, err := obj.ReadDir(ctx, ExtensionsDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// UnmarshalInventory unmarshals the inventory.json file in the object root's
// sub-directory, dir, into the value pointed to by v. Set dir to "." for the
// root inventory.
func (obj ObjectRoot) UnmarshalInventory(ctx context.Context, dir string, v any) (err error) {
	name := inventoryFileName
	if dir != "." {
		name = dir + "/" + name
	}
	f, err := obj.OpenFile(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	byt, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(byt, v)
}

// OpenFile opens a file using a name relative to the object root's path.
func (obj *ObjectRoot) OpenFile(ctx context.Context, name string) (fs.File, error) {
	if obj.Path != "." {
		name = obj.Path + "/" + name
	}
	return obj.FS.OpenFile(ctx, name)
}

// ReadDir reads a directory using a name relative to the object root's
// directory. If name is ".", obj's State is updated using the result.
func (obj *ObjectRoot) ReadDir(ctx context.Context, name string) ([]fs.DirEntry, error) {
	if name == "." {
		var entries []fs.DirEntry
		entries, obj.stateErr = ocflfs.ReadDir(ctx, obj.FS, obj.Path)
		if obj.stateErr != nil {
			return nil, obj.stateErr
		}
		obj.State = ParseObjectRootDir(entries)
		return entries, nil
	}
	if obj.Path != "." {
		name = obj.Path + "/" + name
	}
	return ocflfs.ReadDir(ctx, obj.FS, name)
}

// ReadRoot reads the contents of the object root directory and updates
// obj.State.
func (obj *ObjectRoot) ReadRoot(ctx context.Context) error {
	_, err := obj.ReadDir(ctx, ".")
	return err
}

// Exists returns whether the existence status of the object root is known,
// and if known, whether the root exists.
func (obj *ObjectRoot) Exists(ctx context.Context) (bool, error) {
	if obj.State == nil && obj.stateErr == nil {
		obj.ReadRoot(ctx)
	}
	if obj.stateErr != nil {
		if errors.Is(obj.stateErr, fs.ErrNotExist) {
			return false, nil
		}
		return false, obj.stateErr
	}
	return true, nil
}

func (obj *ObjectRoot) mustHaveNamaste(ctx context.Context) error {
	if obj.State == nil {
		if err := obj.ReadRoot(ctx); err != nil {
			return err
		}
	}
	if !obj.State.HasNamaste() {
		return ErrObjectNamasteNotExist
	}
	return nil
}

// ObjectRootState describes an OCFL object root based on the names of files
// and directories found in it.
type ObjectRootState struct {
	Spec        Spec           // OCFL spec from the object's NAMASTE declaration
	VersionDirs VNums          // version directories found in the object root
	SidecarAlg  string         // digest algorithm used by the inventory sidecar
	Invalid     []string       // non-conforming entries in the object root (max 8)
	Flags       objectRootFlag
}

type objectRootFlag uint8

// ParseObjectRootDir builds an ObjectRootState from the contents of an object
// root directory.
func ParseObjectRootDir(entries []fs.DirEntry) *ObjectRootState {
	state := &ObjectRootState{}
	addInvalid := func(name string) {
		if len(state.Invalid) < maxObjectRootStateInvalid {
			state.Invalid = append(state.Invalid, name)
		}
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			var v VNum
			switch {
			case name == ExtensionsDir:
				state.Flags |= HasExtensions
			case ParseVNum(name, &v) == nil:
				state.VersionDirs = append(state.VersionDirs, v)
			default:
				addInvalid(name)
			}
		case validFileType(e.Type()):
			switch {
			case name == inventoryFileName:
				state.Flags |= HasInventory
			case strings.HasPrefix(name, sidecarPrefix):
				if state.HasSidecar() {
					addInvalid(name)
					break
				}
				state.SidecarAlg = strings.TrimPrefix(name, sidecarPrefix)
				state.Flags |= HasSidecar
			case strings.HasPrefix(name, objectDeclPrefix):
				if state.HasNamaste() {
					addInvalid(name)
					break
				}
				decl, err := ParseNamaste(name)
				if err != nil {
					addInvalid(name)
					break
				}
				state.Spec = decl.Version
				state.Flags |= HasNamaste
			default:
				addInvalid(name)
			}
		default:
			addInvalid(name)
		}
	}
	return state
}

func validFileType(mode fs.FileMode) bool {
	return mode.IsDir() || mode.IsRegular() || mode.Type() == fs.ModeIrregular
}

func (state ObjectRootState) HasNamaste() bool    { return state.Flags&HasNamaste > 0 }
func (state ObjectRootState) HasInventory() bool  { return state.Flags&HasInventory > 0 }
func (state ObjectRootState) HasSidecar() bool    { return state.Flags&HasSidecar > 0 }
func (state ObjectRootState) HasExtensions() bool { return state.Flags&HasExtensions > 0 }

// HasVersionDir returns true if state's VersionDirs includes v.
func (state ObjectRootState) HasVersionDir(v VNum) bool {
	return slices.Contains(state.VersionDirs, v)
}

// Empty returns true if the object root directory is empty.
func (state ObjectRootState) Empty() bool {
	return state.Flags == 0 && len(state.VersionDirs) == 0 && len(state.Invalid) == 0
}

// ObjectRootsFS is an FS with an optimized implementation of ObjectRoots.
type ObjectRootsFS interface {
	FS
	ObjectRoots(ctx context.Context, dir string) ObjectRootSeq
}

// ObjectRootSeq is an iterator that yields ObjectRoot references.
type ObjectRootSeq func(yield func(*ObjectRoot, error) bool)

// ObjectRoots searches dir in fsys (and its subdirectories) for OCFL object
// declarations and returns an iterator that yields each object root found.
func ObjectRoots(ctx context.Context, fsys FS, dir string) ObjectRootSeq {
	if iterFS, ok := fsys.(ObjectRootsFS); ok {
		return iterFS.ObjectRoots(ctx, dir)
	}
	return func(yield func(*ObjectRoot, error) bool) {
		walkObjectRoots(ctx, fsys, dir, yield)
	}
}

func walkObjectRoots(ctx context.Context, fsys FS, dir string, yield func(*ObjectRoot, error) bool) bool {
	entries, err := ocflfs.ReadDir(ctx, fsys, dir)
	if err != nil {
		yield(nil, err)
		return false
	}
	objRoot := &ObjectRoot{FS: fsys, Path: dir, State: ParseObjectRootDir(entries)}
	if objRoot.State.HasNamaste() {
		return yield(objRoot, nil)
	}
	for _, e := range entries {
		if e.IsDir() {
			subdir := path.Join(dir, e.Name())
			if !walkObjectRoots(ctx, fsys, subdir, yield) {
				return false
			}
		}
	}
	return true
}
