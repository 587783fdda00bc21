package ocflv1_test

import (
	"archive/zip"
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ocflfs "github.com/ocfl-archive/ocflgo/fs"
	"github.com/ocfl-archive/ocflgo/ocflv1"
)

var storePath = filepath.Join(`testdata`, `store-fixtures`, `1.0`)

type storeTest struct {
	name string
	size int
}

// uriEncodeLayout resolves object ids to storage paths by URL-encoding them;
// used for fixture stores that don't declare their own ocfl_layout.json.
type uriEncodeLayout struct{}

func (uriEncodeLayout) Name() string { return "uri-encode" }

func (uriEncodeLayout) Resolve(id string) (string, error) {
	return url.QueryEscape(id), nil
}

func openStoreFixture(t *testing.T, name string) (ocflfs.FS, string) {
	t.Helper()
	if strings.HasSuffix(name, `.zip`) {
		zreader, err := zip.OpenReader(filepath.Join(storePath, name))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { zreader.Close() })
		return ocflfs.NewFS(fs.FS(zreader)), "."
	}
	return ocflfs.NewFS(os.DirFS(storePath)), name
}

func TestGetStore(t *testing.T) {
	ctx := context.Background()
	storeTests := []storeTest{
		{name: `good-stores/reg-extension-dir-root`, size: 1},
		{name: `good-stores/unreg-extension-dir-root`, size: 1},
		{name: `good-stores/simple-root`, size: 3},
	}
	for _, sttest := range storeTests {
		t.Run(sttest.name, func(t *testing.T) {
			fsys, root := openStoreFixture(t, sttest.name)
			store, err := ocflv1.GetStore(ctx, fsys, root)
			if err != nil {
				t.Fatal(err)
			}
			if store.LayoutName() == "" {
				store.Layout = uriEncodeLayout{}
			} else if err := store.ReadLayout(ctx); err != nil {
				t.Fatal(err)
			}
			var n int
			store.Objects(ctx)(func(obj *ocflv1.Object, err error) bool {
				if err != nil {
					t.Fatal(err)
				}
				n++
				if _, err := store.ResolveID(obj.Inventory.ID); err != nil {
					t.Fatal(err)
				}
				return true
			})
			if n != sttest.size {
				t.Fatalf("expected %d objects, got %d", sttest.size, n)
			}
		})
	}
}

func TestStoreScanObjects(t *testing.T) {
	ctx := context.Background()
	storeTests := []storeTest{
		{name: `good-stores/reg-extension-dir-root`, size: 1},
		{name: `good-stores/unreg-extension-dir-root`, size: 1},
		{name: `good-stores/simple-root`, size: 3},
		{name: `good-stores/fedora-root.zip`, size: 176},
		{name: `bad-stores/E072_root_with_file_not_in_object`, size: 1},
		{name: `bad-stores/E073_root_with_empty_dir.zip`, size: 0},
	}
	optTable := map[string]*ocflv1.ScanObjectsOpts{
		`default`:       nil,
		`validate`:      {Strict: true},
		`no-validate`:   {Strict: false},
		`fast`:          {Concurrency: 16},
		`slow`:          {Concurrency: 1},
		`fast-validate`: {Strict: true, Concurrency: 16},
		`slow-validate`: {Strict: true, Concurrency: 1},
	}
	for mode, opt := range optTable {
		t.Run(mode, func(t *testing.T) {
			for _, sttest := range storeTests {
				t.Run(sttest.name, func(t *testing.T) {
					fsys, root := openStoreFixture(t, sttest.name)
					expectErr := opt != nil && opt.Strict && strings.HasPrefix(sttest.name, "bad-stores")
					objs, scanErr := ocflv1.ScanObjects(ctx, fsys, root, opt)
					if expectErr {
						if scanErr == nil {
							t.Fatal("expected an error")
						}
						return
					}
					if scanErr != nil {
						t.Fatal(scanErr)
					}
					if l := len(objs); l != sttest.size {
						t.Fatalf("expected %d objects, got %d", sttest.size, l)
					}
				})
			}
		})
	}
}
