package ocflv1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/internal/pathtree"
	"github.com/ocfl-archive/ocflgo/validation"
)

var (
	ErrOCFLVersion        = errors.New("unsupported OCFL version")
	ErrInventoryNotExist  = fmt.Errorf("missing inventory file: %w", fs.ErrNotExist)
	ErrInvSidecarContents = errors.New("invalid inventory sidecar contents")
	ErrInvSidecarChecksum = errors.New("inventory digest doesn't match expected value from sidecar file")
	ErrDigestAlg          = errors.New("invalid digest algorithm")
	ErrObjRootStructure   = errors.New("object includes invalid files or directories")
)

// Object represents an existing OCFL v1.x object. Use GetObject to
// initialize new Objects.
type Object struct {
	*ocfl.ObjectRoot
	Inventory Inventory
}

// GetObject returns an existing object at dir in fsys. It returns an error if
// dir doesn't exist, doesn't include an object declaration file, or if the
// root inventory can't be unmarshalled. Neither the object root nor the
// inventory are fully validated.
func GetObject(ctx context.Context, fsys ocfl.FS, dir string) (*Object, error) {
	root, err := ocfl.GetObjectRoot(ctx, fsys, dir)
	if err != nil {
		return nil, err
	}
	if !ocflVerSupported[root.State.Spec] {
		return nil, fmt.Errorf("%s: %w", root.State.Spec, ErrOCFLVersion)
	}
	if !root.State.HasInventory() {
		return nil, ErrInventoryNotExist
	}
	obj := &Object{ObjectRoot: root}
	if err := obj.ReadInventory(ctx); err != nil {
		return nil, err
	}
	return obj, nil
}

// ReadInventory reads and unmarshals the object's existing root inventory
// into obj.Inventory.
func (obj *Object) ReadInventory(ctx context.Context) error {
	var newInv Inventory
	if err := obj.ObjectRoot.UnmarshalInventory(ctx, ".", &newInv); err != nil {
		return err
	}
	obj.Inventory = newInv
	return nil
}

// Validate fully validates the Object. If the object is valid, the Object's
// inventory is updated with the inventory read during validation.
func (obj *Object) Validate(ctx context.Context, opts ...ValidationOption) *validation.Result {
	newObj, r := ValidateObject(ctx, obj.FS, obj.Path, opts...)
	if r.Err() == nil && newObj != nil {
		obj.Inventory = newObj.Inventory
	}
	return r
}

// Stage returns an ocfl.Stage for the version with number i (0 for head),
// suitable for re-committing the object's existing content (e.g. as the
// basis for an update that edits only a subset of files).
func (obj *Object) Stage(i int) (*ocfl.Stage, error) {
	version := obj.Inventory.Version(i)
	if version == nil {
		return nil, ErrVersionNotFound
	}
	state, err := version.State.Normalize()
	if err != nil {
		return nil, err
	}
	return &ocfl.Stage{
		State:           state,
		DigestAlgorithm: obj.Inventory.DigestAlgorithm,
		ContentSource:   obj,
		FixitySource:    obj,
	}, nil
}

// GetContent implements ocfl.ContentSource for Object: existing manifest
// content can always be read back from the object's own storage root.
func (obj *Object) GetContent(digest string) (ocfl.FS, string) {
	paths := obj.Inventory.Manifest[digest]
	if len(paths) < 1 {
		return nil, ""
	}
	return obj.FS, path.Join(obj.ObjectRoot.Path, paths[0])
}

// GetFixity implements ocfl.FixitySource for Object.
func (obj Object) GetFixity(digest string) map[string]string {
	return map[string]string(obj.Inventory.Manifest.GetFixity(digest, obj.Inventory.Fixity))
}

// ObjectSeq is an iterator that yields Objects.
type ObjectSeq func(yield func(*Object, error) bool)

// Objects returns an iterator that yields Objects found in dir and its
// subdirectories.
func Objects(ctx context.Context, fsys ocfl.FS, dir string) ObjectSeq {
	return func(yieldObject func(*Object, error) bool) {
		objectRootIter := ocfl.ObjectRoots(ctx, fsys, dir)
		objectRootIter(func(objRoot *ocfl.ObjectRoot, err error) bool {
			if err != nil {
				return yieldObject(nil, err)
			}
			obj := &Object{ObjectRoot: objRoot}
			return yieldObject(obj, obj.ReadInventory(ctx))
		})
	}
}

// VersionFS returns an fs.FS presenting the logical state of the object's
// version with number i (0 for head) using logical paths as file names.
func (obj *Object) VersionFS(ctx context.Context, i int) fs.FS {
	ver := obj.Inventory.Version(i)
	if ver == nil {
		return nil
	}
	regfileType := fs.FileMode(0)
	for _, paths := range obj.Inventory.Manifest {
		if len(paths) < 1 {
			continue
		}
		f, err := obj.FS.OpenFile(ctx, path.Join(obj.Path, paths[0]))
		if err != nil {
			continue
		}
		info, statErr := f.Stat()
		f.Close()
		if statErr == nil {
			regfileType = info.Mode().Type()
		}
		break
	}
	tree := pathtree.NewDir[string]()
	ver.State.EachPath(func(logical, digest string) bool {
		// SetFile creates any missing parent directory nodes along the way,
		// so the tree doubles as the directory structure for openDir.
		if err := tree.SetFile(logical, digest); err != nil {
			return true // skip names that collide with a dir/file already set
		}
		return true
	})
	return &versionFS{
		ctx:     ctx,
		obj:     obj,
		tree:    tree,
		created: ver.Created,
		regMode: regfileType,
	}
}

type versionFS struct {
	ctx     context.Context
	obj     *Object
	tree    *pathtree.Node[string]
	created time.Time
	regMode fs.FileMode
}

func (vfs *versionFS) Open(logical string) (fs.File, error) {
	if !fs.ValidPath(logical) {
		return nil, &fs.PathError{Err: fs.ErrInvalid, Op: "open", Path: logical}
	}
	node, err := vfs.tree.Get(logical)
	if err != nil {
		return nil, &fs.PathError{Err: fs.ErrNotExist, Op: "open", Path: logical}
	}
	if node.IsDir() {
		return vfs.openDir(logical, node)
	}
	digest := node.Val
	realNames := vfs.obj.Inventory.Manifest[digest]
	if len(realNames) < 1 {
		return nil, &fs.PathError{Err: fs.ErrNotExist, Op: "open", Path: logical}
	}
	realName := realNames[0]
	if !fs.ValidPath(realName) {
		return nil, &fs.PathError{Err: fs.ErrInvalid, Op: "open", Path: logical}
	}
	f, err := vfs.obj.FS.OpenFile(vfs.ctx, path.Join(vfs.obj.Path, realName))
	if err != nil {
		return nil, fmt.Errorf("opening file with logical path %q: %w", logical, err)
	}
	return f, nil
}

func (vfs *versionFS) openDir(dir string, node *pathtree.Node[string]) (fs.File, error) {
	treeEntries := node.DirEntries()
	entries := make([]fs.DirEntry, len(treeEntries))
	for i, te := range treeEntries {
		name := te.Name()
		mode := vfs.regMode
		if te.IsDir() {
			mode |= fs.ModeDir | fs.ModeIrregular
		}
		entries[i] = &vfsDirEntry{
			name:    name,
			mode:    mode,
			created: vfs.created,
			open:    func() (fs.File, error) { return vfs.Open(path.Join(dir, name)) },
		}
	}
	return &vfsDirFile{name: dir, created: vfs.created, entries: entries}, nil
}

type vfsDirEntry struct {
	name    string
	created time.Time
	mode    fs.FileMode
	open    func() (fs.File, error)
}

var _ fs.DirEntry = (*vfsDirEntry)(nil)

func (info *vfsDirEntry) Name() string      { return info.name }
func (info *vfsDirEntry) IsDir() bool       { return info.mode.IsDir() }
func (info *vfsDirEntry) Type() fs.FileMode { return info.mode.Type() }

func (info *vfsDirEntry) Info() (fs.FileInfo, error) {
	f, err := info.open()
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	return stat, errors.Join(err, f.Close())
}

func (info *vfsDirEntry) Size() int64        { return 0 }
func (info *vfsDirEntry) Mode() fs.FileMode  { return info.mode | fs.ModeIrregular }
func (info *vfsDirEntry) ModTime() time.Time { return info.created }
func (info *vfsDirEntry) Sys() any           { return nil }

type vfsDirFile struct {
	name    string
	created time.Time
	entries []fs.DirEntry
	offset  int
}

var _ fs.ReadDirFile = (*vfsDirFile)(nil)

func (dir *vfsDirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if n <= 0 {
		entries := dir.entries[dir.offset:]
		dir.offset = len(dir.entries)
		return entries, nil
	}
	if remain := len(dir.entries) - dir.offset; remain < n {
		n = remain
	}
	if n <= 0 {
		return nil, io.EOF
	}
	entries := dir.entries[dir.offset : dir.offset+n]
	dir.offset += n
	return entries, nil
}

func (dir *vfsDirFile) Close() error               { return nil }
func (dir *vfsDirFile) IsDir() bool                { return true }
func (dir *vfsDirFile) Mode() fs.FileMode          { return fs.ModeDir | fs.ModeIrregular }
func (dir *vfsDirFile) ModTime() time.Time         { return dir.created }
func (dir *vfsDirFile) Name() string               { return dir.name }
func (dir *vfsDirFile) Read(_ []byte) (int, error) { return 0, nil }
func (dir *vfsDirFile) Size() int64                { return 0 }
func (dir *vfsDirFile) Stat() (fs.FileInfo, error) { return dir, nil }
func (dir *vfsDirFile) Sys() any                   { return nil }
