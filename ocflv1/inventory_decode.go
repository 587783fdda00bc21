package ocflv1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/ocflv1/codes"
	"github.com/ocfl-archive/ocflgo/validation"
)

// decodeInventory is an internal type used exclusively for reading/decoding
// inventory files. The main difference between decodeInventory and Inventory
// is that decodeInventory's fields are pointers, so that missing required
// fields can be detected and reported with an OCFL error code instead of
// decoding as zero values.
type decodeInventory struct {
	ID               *string                   `json:"id"`
	Type             *ocfl.InventoryType       `json:"type"`
	DigestAlgorithm  *string                   `json:"digestAlgorithm"`
	Head             *ocfl.VNum                `json:"head"`
	ContentDirectory *string                   `json:"contentDirectory,omitempty"`
	Manifest         ocfl.DigestMap            `json:"manifest"`
	Versions         map[ocfl.VNum]*decodeVersion `json:"versions"`
	Fixity           map[string]ocfl.DigestMap `json:"fixity,omitempty"`

	ocflV  ocfl.Spec // OCFL version determined during UnmarshalJSON
	digest string    // inventory digest, set by the caller after reading
}

// decodeVersion is an internal type used exclusively for reading/decoding a
// version entry from an inventory's "versions" block.
type decodeVersion struct {
	Created *time.Time     `json:"created"`
	State   ocfl.DigestMap `json:"state"`
	Message *string        `json:"message,omitempty"`
	User    *decodeUser    `json:"user,omitempty"`
}

// decodeUser is an internal type used exclusively for reading/decoding the
// "user" block of a version entry.
type decodeUser struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// validateNils checks that none of the inventory's required fields have nil
// values. The returned Result includes a fatal error for each nil value
// encountered.
func (inv *decodeInventory) validateNils() *validation.Result {
	result := validation.NewResult(-1)
	if inv.ID == nil {
		err := errors.New("missing required field: 'id'")
		result.AddFatal(validation.NewErrorCode(err, codes.E036(inv.ocflV)))
	}
	if inv.DigestAlgorithm == nil {
		err := errors.New("missing required field: 'digestAlgorithm'")
		result.AddFatal(validation.NewErrorCode(err, codes.E036(inv.ocflV)))
	}
	if inv.Head == nil {
		err := errors.New("missing required field: 'head'")
		result.AddFatal(validation.NewErrorCode(err, codes.E036(inv.ocflV)))
	}
	if inv.Manifest == nil {
		err := errors.New("missing required field: 'manifest'")
		result.AddFatal(validation.NewErrorCode(err, codes.E041(inv.ocflV)))
	}
	if inv.Versions == nil {
		err := errors.New("missing required field: 'versions'")
		result.AddFatal(validation.NewErrorCode(err, codes.E041(inv.ocflV)))
	}
	for vname, ver := range inv.Versions {
		if ver == nil {
			err := fmt.Errorf("version %s missing value", vname)
			result.AddFatal(validation.NewErrorCode(err, codes.E048(inv.ocflV)))
			continue
		}
		if ver.Created == nil {
			err := fmt.Errorf("version %s missing required field: 'created'", vname)
			result.AddFatal(validation.NewErrorCode(err, codes.E048(inv.ocflV)))
		}
		if ver.State == nil {
			err := fmt.Errorf("version %s missing required field: 'state'", vname)
			result.AddFatal(validation.NewErrorCode(err, codes.E048(inv.ocflV)))
		}
		if ver.User != nil && ver.User.Name == nil {
			err := fmt.Errorf("version %s user missing required field: 'name'", vname)
			result.AddFatal(validation.NewErrorCode(err, codes.E054(inv.ocflV)))
		}
	}
	return result
}

func (inv decodeInventory) contentDirectory() string {
	if inv.ContentDirectory == nil {
		return contentDir
	}
	return *inv.ContentDirectory
}

// asInventory converts inv to an Inventory. If inv cannot be converted due to
// nil values, the returned validation.Result includes fatal errors and the
// *Inventory is nil.
func (inv decodeInventory) asInventory() (*Inventory, *validation.Result) {
	result := inv.validateNils()
	if result.Err() != nil {
		return nil, result
	}
	newInv := &Inventory{
		ID:               *inv.ID,
		Type:             *inv.Type,
		Head:             *inv.Head,
		ContentDirectory: inv.contentDirectory(),
		DigestAlgorithm:  *inv.DigestAlgorithm,
		Manifest:         inv.Manifest,
		Fixity:           inv.Fixity,
		digest:           inv.digest,
	}
	newInv.Versions = make(map[ocfl.VNum]*Version, len(inv.Versions))
	for num, ver := range inv.Versions {
		newInv.Versions[num] = ver.asVersion()
	}
	return newInv, result
}

func (ver decodeVersion) asVersion() *Version {
	newVer := &Version{State: ver.State}
	if ver.Created != nil {
		newVer.Created = *ver.Created
	}
	if ver.Message != nil {
		newVer.Message = *ver.Message
	}
	if ver.User != nil {
		newVer.User = &ocfl.User{}
		if ver.User.Name != nil {
			newVer.User.Name = *ver.User.Name
		}
		if ver.User.Address != nil {
			newVer.User.Address = *ver.User.Address
		}
	}
	return newVer
}

// asValidInventory converts inv to an Inventory and checks its validity. The
// returned *validation.Result is always non-nil and has no associated logger
// (no errors in it have been logged yet).
func (inv decodeInventory) asValidInventory() (*Inventory, *validation.Result) {
	newInv, result := inv.asInventory()
	if err := result.Err(); err != nil {
		return nil, result
	}
	result.Merge(newInv.Validate())
	if err := result.Err(); err != nil {
		return nil, result
	}
	return newInv, result
}

func (inv *decodeInventory) UnmarshalJSON(b []byte) error {
	// determine inventory type/version before decoding the rest, so field
	// errors below can be associated with an OCFL spec version.
	var justType struct {
		Type ocfl.InventoryType `json:"type"`
	}
	if err := json.Unmarshal(b, &justType); err != nil {
		return &InvDecodeError{error: err, Field: "type"}
	}
	ocflV := justType.Type.Spec
	if ocflV.Empty() {
		return &InvDecodeError{
			error: errors.New("can't determine inventory type/OCFL version"),
			Field: "type",
		}
	}
	type invAlias decodeInventory
	alias := (*invAlias)(inv)
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(alias); err != nil {
		var invErr *InvDecodeError
		if errors.As(err, &invErr) {
			invErr.ocflV = ocflV
			return err
		}
		var jsonErr *json.UnmarshalTypeError
		if errors.As(err, &jsonErr) {
			return &InvDecodeError{error: err, Field: jsonErr.Field, ocflV: ocflV}
		}
		if errors.Is(err, ocfl.ErrVNumInvalid) {
			return &InvDecodeError{error: err, Field: "head", ocflV: ocflV}
		}
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return &InvDecodeError{
				error:   err,
				Unknown: true,
				Field:   strings.TrimPrefix(err.Error(), "json: unknown field "),
				ocflV:   ocflV,
			}
		}
		return &InvDecodeError{error: err, ocflV: ocflV}
	}
	inv.ocflV = ocflV
	return nil
}

// InvDecodeError wraps errors generated while unmarshaling an inventory. It
// implements validation.ErrorCode so instances can be mapped to an OCFL spec
// error code.
type InvDecodeError struct {
	error
	Field   string
	Unknown bool
	ocflV   ocfl.Spec
}

var _ validation.ErrorCode = (*InvDecodeError)(nil)

func (invErr *InvDecodeError) Error() string {
	if invErr.Field != "" {
		return fmt.Sprintf("error in inventory '%s': %s", invErr.Field, invErr.error.Error())
	}
	return fmt.Sprintf("error in inventory: %s", invErr.error.Error())
}

func (invErr *InvDecodeError) Unwrap() error {
	return invErr.error
}

func (invErr *InvDecodeError) OCFLRef() *ocfl.ValidationCode {
	switch invErr.Field {
	case "head":
		return codes.E104(invErr.ocflV)
	case "type":
		return codes.E038(invErr.ocflV)
	case "version":
		switch err := invErr.error.(type) {
		case *time.ParseError:
			return codes.E049(invErr.ocflV)
		case *json.UnmarshalTypeError:
			if err.Field == `versions.message` {
				return codes.E094(invErr.ocflV)
			}
		}
	}
	if strings.HasPrefix(invErr.error.Error(), "json: unknown field") {
		return codes.E102(invErr.ocflV)
	}
	return nil
}
