package extension

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"

	"golang.org/x/crypto/blake2b"
)

const (
	// extension name key for config.json
	extensionName = "extensionName"
	// extensions directory name
	extensions = "extensions"
)

var (
	ErrMarshal         = errors.New("extension config doesn't include '" + extensionName + "' string")
	ErrNotLayout       = errors.New("not a layout extension")
	ErrUnknown         = errors.New("unrecognized extension")
	ErrInvalidLayoutID = errors.New("invalid object id for layout")
)

// Extension is an OCFL extension, as configured in an extension's
// config.json file.
type Extension interface {
	Name() string // Name returns the extension name
}

// Layout is an extension that provides a function for resolving object IDs
// to Storage Root paths.
type Layout interface {
	Extension
	Resolve(id string) (path string, err error)
}

// Base provides the Extension implementation shared by extensions that don't
// need additional configuration beyond their name.
type Base struct {
	ExtensionName string `json:"extensionName"`
}

func (b Base) Name() string { return b.ExtensionName }

// baseExtensions are the storage-root layout extensions registered in
// DefaultRegister().
var baseExtensions = []func() Extension{Ext0002, Ext0003, Ext0004, Ext0006, Ext0007}

func getAlg(name string) hash.Hash {
	switch name {
	case `sha512`:
		return sha512.New()
	case `sha256`:
		return sha256.New()
	case `sha1`:
		return sha1.New()
	case `md5`:
		return md5.New()
	case `blake2b-512`:
		h, err := blake2b.New512(nil)
		if err != nil {
			panic("creating new blake2b hash")
		}
		return h
	default:
		return nil
	}
}
