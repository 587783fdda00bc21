package ocflv1_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/digest"
	"github.com/ocfl-archive/ocflgo/fs/local"
	"github.com/ocfl-archive/ocflgo/ocflv1"
)

func TestCommit(t *testing.T) {
	ctx := context.Background()
	t.Run("minimal stage", func(t *testing.T) {
		dir, err := os.MkdirTemp("", "ocflgo-commit-test-*")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(dir)
		fsys, err := local.NewFS(dir)
		if err != nil {
			t.Fatal(err)
		}
		root := "object-root"
		id := "001"
		stage := &ocfl.Stage{
			State:           ocfl.DigestMap{},
			DigestAlgorithm: digest.SHA256.ID(),
		}
		if err := ocflv1.Commit(ctx, fsys, root, id, stage); err != nil {
			t.Fatal(err)
		}
		obj, result := ocflv1.ValidateObject(ctx, fsys, root)
		if err := result.Err(); err != nil {
			t.Fatal(err)
		}
		if obj.Inventory.DigestAlgorithm != stage.DigestAlgorithm {
			t.Fatal("expected digest algorithm to be", stage.DigestAlgorithm)
		}
		if obj.Path != root {
			t.Fatal("expected object path to be", root)
		}
		if obj.Inventory.ID != id {
			t.Fatal("expected object id to be", id)
		}
	})
}

// testContentSource supplies new content for a commit's stage from a simple
// in-memory digest -> bytes map.
type testContentSource struct {
	fsys    ocfl.WriteFS
	digests map[string]string // digest -> temp path written to fsys
}

func newTestContentSource(ctx context.Context, fsys ocfl.WriteFS, content map[string][]byte) (*testContentSource, error) {
	src := &testContentSource{fsys: fsys, digests: map[string]string{}}
	for name, b := range content {
		alg := digest.SHA256.Digester()
		if _, err := alg.Write(b); err != nil {
			return nil, err
		}
		sum := alg.String()
		tmp := "staging/" + name
		if _, err := fsys.Write(ctx, tmp, bytes.NewReader(b)); err != nil {
			return nil, err
		}
		src.digests[sum] = tmp
	}
	return src, nil
}

func (src *testContentSource) GetContent(sum string) (ocfl.FS, string) {
	p, ok := src.digests[sum]
	if !ok {
		return nil, ""
	}
	return src.fsys, p
}

// ExampleCommit demonstrates committing a new object version from content
// staged on the object's own storage backend.
func ExampleCommit() {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "ocflgo-commit-example-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)
	fsys, err := local.NewFS(dir)
	if err != nil {
		panic(err)
	}
	content := map[string][]byte{"readme.txt": []byte("hello ocfl")}
	src, err := newTestContentSource(ctx, fsys, content)
	if err != nil {
		panic(err)
	}
	state := ocfl.PathMap{}
	sums := map[string]string{}
	for name, b := range content {
		alg := digest.SHA256.Digester()
		alg.Write(b)
		sums[name] = alg.String()
		state[name] = sums[name]
	}
	digestMap, err := state.DigestMapValid()
	if err != nil {
		panic(err)
	}
	stage := &ocfl.Stage{
		State:           digestMap,
		DigestAlgorithm: digest.SHA256.ID(),
		ContentSource:   src,
	}
	if err := ocflv1.Commit(ctx, fsys, "object-001", "example-object", stage); err != nil {
		panic(err)
	}
	obj, err := ocflv1.GetObject(ctx, fsys, "object-001")
	if err != nil {
		panic(err)
	}
	if result := obj.Validate(ctx); result.Err() != nil {
		panic(result.Err())
	}
}
