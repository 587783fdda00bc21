package ocfl

import (
	"context"

	ocflfs "github.com/ocfl-archive/ocflgo/fs"
)

// FS and WriteFS are aliases for the storage backend abstraction defined in
// package fs. They're re-exported here so that callers working with the
// top-level object/storage-root APIs don't need a separate import for the
// common case.
type (
	FS      = ocflfs.FS
	WriteFS = ocflfs.WriteFS
)

// Copy copies the file at src in srcFS to dst in dstFS.
func Copy(ctx context.Context, dstFS FS, dst string, srcFS FS, src string) error {
	_, err := ocflfs.Copy(ctx, dstFS, dst, srcFS, src)
	return err
}
