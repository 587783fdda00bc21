package ocfl_test

import (
	"context"
	"os"
	"testing"
	"testing/fstest"

	"github.com/matryer/is"
	"github.com/ocfl-archive/ocflgo"
	ocflfs "github.com/ocfl-archive/ocflgo/fs"
	"github.com/ocfl-archive/ocflgo/fs/local"
)

func TestParseNamaste(t *testing.T) {
	table := map[string]ocfl.Namaste{
		`0=ocfl_1.0`: {`ocfl`, ocfl.Spec{1, 0}},
		`0=oc_1.1`:   {`oc`, ocfl.Spec{1, 1}},
		`1=ocfl_1.0`: {``, ocfl.Spec{}},
		`0=AB_1`:     {``, ocfl.Spec{}},
	}
	for in, exp := range table {
		t.Run(in, func(t *testing.T) {
			is := is.New(t)
			n, err := ocfl.ParseNamaste(in)
			if exp.Type != "" {
				is.NoErr(err)
				is.Equal(n, exp)
			} else {
				is.True(err != nil)
			}
		})
	}
}

func TestValidateNamaste(t *testing.T) {
	is := is.New(t)
	fsys := ocflfs.NewFS(fstest.MapFS{
		"0=hot_tub_12.1": &fstest.MapFile{
			Data: []byte("hot_tub_12.1\n")},
		"0=hot_bath_12.1": &fstest.MapFile{
			Data: []byte("hot_tub_12.1")},
		"1=hot_tub_12.1": &fstest.MapFile{
			Data: []byte("hot_tub_12.1\n")},
	})
	err := ocfl.ValidateNamaste(context.Background(), fsys, "0=hot_tub_12.1")
	is.NoErr(err)
	err = ocfl.ValidateNamaste(context.Background(), fsys, "0=hot_bath_12.1")
	is.True(err != nil)
	err = ocfl.ValidateNamaste(context.Background(), fsys, "1=hot_tub_12.1")
	is.True(err != nil)
}

func TestWriteDeclaration(t *testing.T) {
	is := is.New(t)
	tmpDir, err := os.MkdirTemp("", "tmp-namaste-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)
	fsys, err := local.NewFS(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	v := ocfl.Spec{12, 1}
	dec := ocfl.Namaste{Type: "ocfl", Version: v}
	err = ocfl.WriteDeclaration(context.Background(), fsys, ".", dec)
	is.NoErr(err)
	inf, err := ocflfs.ReadDir(context.Background(), fsys, ".")
	is.NoErr(err)
	out, err := ocfl.FindNamaste(inf)
	is.NoErr(err)
	is.True(out.Type == "ocfl")
	is.True(out.Version == v)
	err = ocfl.ValidateNamaste(context.Background(), fsys, dec.Name())
	is.NoErr(err)
}
