package validation

import "github.com/ocfl-archive/ocflgo"

// ErrorCode is an error that also references an OCFL spec validation code.
type ErrorCode interface {
	error
	OCFLRef() *ocfl.ValidationCode
}

// NewErrorCode wraps err so that it carries the OCFL validation code ref.
// ref may be nil if the spec version doesn't define a code for the check.
func NewErrorCode(err error, ref *ocfl.ValidationCode) ErrorCode {
	return &vErr{error: err, ref: ref}
}

// vErr is an error returned from a validation check.
type vErr struct {
	error
	ref *ocfl.ValidationCode
}

func (verr *vErr) OCFLRef() *ocfl.ValidationCode {
	return verr.ref
}

func (verr *vErr) Unwrap() error {
	return verr.error
}

func (verr *vErr) Code() string {
	if verr.ref == nil {
		return ""
	}
	return verr.ref.Code
}

func (verr *vErr) Description() string {
	if verr.ref == nil {
		return ""
	}
	return verr.ref.Description
}

func (verr *vErr) URL() string {
	if verr.ref == nil {
		return ""
	}
	return verr.ref.URL
}
