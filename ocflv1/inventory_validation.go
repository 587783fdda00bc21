package ocflv1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/digest"
	"github.com/ocfl-archive/ocflgo/ocflv1/codes"
	"github.com/ocfl-archive/ocflgo/validation"
)

// logFatal adds err to result as a fatal error and, if lgr is non-nil, logs
// it. It returns result for chaining.
func logFatal(lgr *slog.Logger, result *validation.Result, err error) *validation.Result {
	if err == nil {
		return result
	}
	result.AddFatal(err)
	if lgr != nil {
		var code validation.ErrorCode
		if errors.As(err, &code) && code.OCFLRef() != nil {
			lgr.Error(err.Error(), "ocfl_code", code.OCFLRef().Code)
			return result
		}
		lgr.Error(err.Error())
	}
	return result
}

// logWarn adds err to result as a warning and, if lgr is non-nil, logs it.
func logWarn(lgr *slog.Logger, result *validation.Result, err error) *validation.Result {
	if err == nil {
		return result
	}
	result.AddWarn(err)
	if lgr != nil {
		var code validation.ErrorCode
		if errors.As(err, &code) && code.OCFLRef() != nil {
			lgr.Warn(err.Error(), "ocfl_code", code.OCFLRef().Code)
			return result
		}
		lgr.Warn(err.Error())
	}
	return result
}

// Validate validates the inventory. It only checks the inventory's structure
// and internal consistency. The inventory is valid if the returned validation
// result includes no fatal errors (it may include warning errors). The
// returned validation.Result is not associated with a logger, and no errors
// in the result have been logged.
func (inv *Inventory) Validate() *validation.Result {
	result := validation.NewResult(-1)
	spec := inv.Type.Spec
	if inv.Type.Empty() {
		result.AddFatal(errors.New("missing required field: 'type'"))
	}
	if inv.ID == "" {
		err := errors.New("missing required field: 'id'")
		result.AddFatal(validation.NewErrorCode(err, codes.E036(spec)))
	}
	if inv.Head.Empty() {
		err := errors.New("missing required field: 'head'")
		result.AddFatal(validation.NewErrorCode(err, codes.E036(spec)))
	}
	if inv.ContentDirectory == "" {
		inv.ContentDirectory = contentDir
	}
	// don't continue if there are fatal errors
	if result.Err() != nil {
		return result
	}
	if u, err := url.ParseRequestURI(inv.ID); err != nil || u.Scheme == "" {
		err := fmt.Errorf(`object ID is not a URI: %s`, inv.ID)
		result.AddWarn(validation.NewErrorCode(err, codes.W005(spec)))
	}
	switch inv.DigestAlgorithm {
	case digest.SHA512.ID():
		// ok
	case digest.SHA256.ID():
		err := fmt.Errorf(`digestAlgorithm is not %s`, digest.SHA512.ID())
		result.AddWarn(validation.NewErrorCode(err, codes.W004(spec)))
	default:
		err := fmt.Errorf(`digestAlgorithm is not %s or %s`, digest.SHA512.ID(), digest.SHA256.ID())
		result.AddFatal(validation.NewErrorCode(err, codes.E025(spec)))
	}
	if err := inv.Head.Valid(); err != nil {
		// this shouldn't ever trigger since the invalid condition is caught during unmarshal.
		err = fmt.Errorf("head is invalid: %w", err)
		result.AddFatal(validation.NewErrorCode(err, codes.E011(spec)))
	}
	if strings.Contains(inv.ContentDirectory, "/") {
		err := errors.New("contentDirectory contains '/'")
		result.AddFatal(validation.NewErrorCode(err, codes.E017(spec)))
	}
	if inv.ContentDirectory == "." || inv.ContentDirectory == ".." {
		err := errors.New("contentDirectory is '.' or '..'")
		result.AddFatal(validation.NewErrorCode(err, codes.E017(spec)))
	}
	if err := inv.Manifest.Valid(); err != nil {
		result.AddFatal(manifestValidErrCode(err, spec))
	}
	// version names
	var versionNums ocfl.VNums = make([]ocfl.VNum, 0, len(inv.Versions))
	for n := range inv.Versions {
		versionNums = append(versionNums, n)
	}
	if err := versionNums.Valid(); err != nil {
		switch {
		case errors.Is(err, ocfl.ErrVerEmpty):
			err = validation.NewErrorCode(err, codes.E008(spec))
		case errors.Is(err, ocfl.ErrVNumMissing):
			err = validation.NewErrorCode(err, codes.E010(spec))
		case errors.Is(err, ocfl.ErrVNumPadding):
			err = validation.NewErrorCode(err, codes.E012(spec))
		}
		result.AddFatal(err)
	}
	if head := versionNums.Head(); head != inv.Head {
		err := fmt.Errorf(`version head not most recent version: %s`, inv.Head)
		result.AddFatal(validation.NewErrorCode(err, codes.E040(spec)))
	}
	// version state
	for vname, ver := range inv.Versions {
		if err := ver.State.Valid(); err != nil {
			result.AddFatal(versionStateErrCode(err, spec))
		}
		// check that each state digest appears in manifest
		for dig := range ver.State.AllDigests() {
			if !inv.Manifest.DigestExists(dig) {
				err := fmt.Errorf("digest in %s state not in manifest: %s", vname, dig)
				result.AddFatal(validation.NewErrorCode(err, codes.E050(spec)))
			}
		}
		// version message
		if ver.Message == "" {
			err := fmt.Errorf("version %s missing recommended field: 'message'", vname)
			result.AddWarn(validation.NewErrorCode(err, codes.W007(spec)))
		}
		if ver.User != nil {
			if ver.User.Name == "" {
				err := fmt.Errorf("version %s user missing required field: 'name'", vname)
				result.AddFatal(validation.NewErrorCode(err, codes.E054(spec)))
			}
			if ver.User.Address == "" {
				err := fmt.Errorf("version %s user missing recommended field: 'address'", vname)
				result.AddWarn(validation.NewErrorCode(err, codes.W008(spec)))
			} else if u, err := url.ParseRequestURI(ver.User.Address); err != nil || u.Scheme == "" {
				err := fmt.Errorf("version %s user address is not a URI", vname)
				result.AddWarn(validation.NewErrorCode(err, codes.W009(spec)))
			}
		}
	}
	// check that each manifest entry is used in at least one state
	for dig := range inv.Manifest.AllDigests() {
		var found bool
		for _, version := range inv.Versions {
			if version.State != nil && version.State.DigestExists(dig) {
				found = true
				break
			}
		}
		if !found {
			err := fmt.Errorf("digest in manifest not used in version state: %s", dig)
			result.AddFatal(validation.NewErrorCode(err, codes.E107(spec)))
		}
	}
	// fixity
	for _, fixity := range inv.Fixity {
		if err := fixity.Valid(); err != nil {
			result.AddFatal(fixityValidErrCode(err, spec))
		}
	}
	return result
}

func manifestValidErrCode(err error, spec ocfl.Spec) error {
	var dcErr *ocfl.DigestConflictErr
	var bpErr *ocfl.BasePathErr
	var pcErr *ocfl.PathConflictErr
	var piErr *ocfl.PathInvalidErr
	switch {
	case errors.As(err, &dcErr):
		return validation.NewErrorCode(err, codes.E096(spec))
	case errors.As(err, &bpErr):
		return validation.NewErrorCode(err, codes.E101(spec))
	case errors.As(err, &pcErr):
		return validation.NewErrorCode(err, codes.E101(spec))
	case errors.As(err, &piErr):
		return validation.NewErrorCode(err, codes.E099(spec))
	}
	return err
}

func versionStateErrCode(err error, spec ocfl.Spec) error {
	var dcErr *ocfl.DigestConflictErr
	var bpErr *ocfl.BasePathErr
	var pcErr *ocfl.PathConflictErr
	var piErr *ocfl.PathInvalidErr
	switch {
	case errors.As(err, &dcErr):
		return validation.NewErrorCode(err, codes.E050(spec))
	case errors.As(err, &bpErr):
		return validation.NewErrorCode(err, codes.E095(spec))
	case errors.As(err, &pcErr):
		return validation.NewErrorCode(err, codes.E095(spec))
	case errors.As(err, &piErr):
		return validation.NewErrorCode(err, codes.E052(spec))
	}
	return err
}

func fixityValidErrCode(err error, spec ocfl.Spec) error {
	var dcErr *ocfl.DigestConflictErr
	var piErr *ocfl.PathInvalidErr
	var pcErr *ocfl.PathConflictErr
	switch {
	case errors.As(err, &dcErr):
		return validation.NewErrorCode(err, codes.E097(spec))
	case errors.As(err, &piErr):
		return validation.NewErrorCode(err, codes.E099(spec))
	case errors.As(err, &pcErr):
		return validation.NewErrorCode(err, codes.E101(spec))
	}
	return err
}

// ValidateInventory fully validates an inventory at path name in fsys,
// including its digest sidecar.
func ValidateInventory(ctx context.Context, fsys ocfl.FS, name string, vops ...ValidationOption) (*Inventory, *validation.Result) {
	opts, invResult := validationSetup(vops)
	lgr := opts.Logger
	ocflV := opts.FallbackOCFL
	f, err := fsys.OpenFile(ctx, name)
	if err != nil {
		return nil, logFatal(lgr, invResult, validation.NewErrorCode(err, codes.E063(ocflV)))
	}
	defer f.Close()
	invOpts := []ValidationOption{
		copyValidationOptions(opts),
		appendResult(invResult),
	}
	inv, _ := ValidateInventoryReader(ctx, f, invOpts...)
	if invResult.Err() != nil {
		return nil, invResult
	}
	ocflV = inv.Type.Spec
	side := name + "." + inv.DigestAlgorithm
	expSum, err := readInventorySidecar(ctx, fsys, side)
	if err != nil {
		if errors.Is(err, ErrInvSidecarContents) {
			return nil, logFatal(lgr, invResult, validation.NewErrorCode(err, codes.E061(ocflV)))
		}
		return nil, logFatal(lgr, invResult, validation.NewErrorCode(err, codes.E058(ocflV)))
	}
	if !strings.EqualFold(inv.digest, expSum) {
		shortSum := inv.digest[:6]
		shortExp := expSum[:6]
		err := fmt.Errorf("inventory's checksum (%s) doesn't match expected value in sidecar (%s): %s", shortSum, shortExp, name)
		return nil, logFatal(lgr, invResult, validation.NewErrorCode(err, codes.E060(ocflV)))
	}
	return inv, invResult
}

// ValidateInventoryReader fully validates the inventory read from reader. The
// digest algorithm used to compute the inventory's own digest is determined
// from the decoded inventory's "digestAlgorithm" field.
func ValidateInventoryReader(ctx context.Context, reader io.Reader, vops ...ValidationOption) (*Inventory, *validation.Result) {
	opts, result := validationSetup(vops)
	lgr := opts.Logger
	var decInv decodeInventory
	sum, err := readDigestInventory(ctx, reader, &decInv, opts.AlgRegistry)
	if err != nil {
		var decErr *InvDecodeError
		if errors.As(err, &decErr) {
			if decErr.ocflV.Empty() {
				decErr.ocflV = opts.FallbackOCFL
			}
			return nil, logFatal(lgr, result, err)
		}
		return nil, logFatal(lgr, result, validation.NewErrorCode(err, codes.E034(opts.FallbackOCFL)))
	}
	inv, invResult := decInv.asValidInventory()
	for _, e := range invResult.Fatal() {
		logFatal(lgr, result, e)
	}
	for _, e := range invResult.Warn() {
		logWarn(lgr, result, e)
	}
	if err := result.Err(); err != nil {
		return nil, result
	}
	inv.digest = sum
	return inv, result
}

// readDigestInventory reads and decodes the contents of reader into the
// value pointed to by inv. It also digests the raw bytes of reader using the
// algorithm named by the decoded inventory's "digestAlgorithm" field,
// returning the resulting digest string.
func readDigestInventory(ctx context.Context, reader io.Reader, inv interface{}, reg digest.AlgorithmRegistry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	byt, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(byt, inv); err != nil {
		return "", err
	}
	var tmpInv struct {
		Digest string `json:"digestAlgorithm"`
	}
	if err := json.Unmarshal(byt, &tmpInv); err != nil {
		return "", err
	}
	algs := reg.GetAny(tmpInv.Digest)
	if len(algs) == 0 {
		return "", fmt.Errorf("%w: %q", digest.ErrUnknown, tmpInv.Digest)
	}
	checksum := algs[0].Digester()
	if _, err := io.Copy(checksum, bytes.NewReader(byt)); err != nil {
		return "", err
	}
	return checksum.String(), nil
}
