package ocflv1_test

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"testing"

	ocflfs "github.com/ocfl-archive/ocflgo/fs"
	"github.com/ocfl-archive/ocflgo/ocflv1"
)

var fixturePath = filepath.Join(`testdata`, `object-fixtures`, `1.0`)
var goodObjPath = filepath.Join(fixturePath, `good-objects`)

//var badObjPath = filepath.Join(fixturePath, `bad-objects`)

func TestReadObject(t *testing.T) {
	ctx := context.Background()
	fsys := ocflfs.DirFS(goodObjPath)
	obj, err := ocflv1.GetObject(ctx, fsys, "spec-ex-full")
	if err != nil {
		t.Fatal(err)
	}
	vnums := obj.Inventory.VNums()
	if len(vnums) != 3 {
		t.Error("expected 3 versions")
	}
	if obj.Inventory.Head.Num() != 3 {
		t.Error("expected head to be version 3")
	}
	cont, err := obj.Inventory.ContentPath(0, "foo/bar.xml")
	if err != nil {
		t.Error(err)
	}
	if _, err := fs.Stat(os.DirFS(goodObjPath), path.Join("spec-ex-full", cont)); err != nil {
		t.Fatal(err)
	}
}
