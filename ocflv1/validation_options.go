package ocflv1

import (
	"log/slog"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/digest"
	"github.com/ocfl-archive/ocflgo/logging"
	"github.com/ocfl-archive/ocflgo/validation"
)

type validationOptions struct {
	// Validation errors/warnings logged here. Defaults to
	// logging.DisabledLogger()
	Logger *slog.Logger

	// MaxErrs is passed to validation.NewResult as the initial capacity of
	// the returned Result's fatal error list. Defaults to 100. The Result
	// does not cap the number of errors it holds.
	MaxErrs int

	// Skip object validation when validating a storage root
	SkipObjects bool

	// Digests will not be validated
	SkipDigests bool // don't validate object digiests

	// if the OCFL version cannot be determined, validation errors will
	// reference this version of the OCFL ocfl.
	FallbackOCFL ocfl.Spec

	// Algorithm Registry
	AlgRegistry digest.Register

	// Validation should add errors to an existing result set.
	result *validation.Result
}

func defaultValidationOptions() *validationOptions {
	return &validationOptions{
		AlgRegistry:  digest.DefaultRegister(),
		Logger:       logging.DisabledLogger(),
		FallbackOCFL: ocflv1_0,
		MaxErrs:      100,
	}
}

// ValidationOption is a type used to configure the behavior
// of several Validation functions in the package.
type ValidationOption func(*validationOptions)

// ValidationLogger sets the logger where validation errors are logged.
func ValidationLogger(l *slog.Logger) ValidationOption {
	return func(opts *validationOptions) {
		opts.Logger = l
	}
}

// ValidationMaxErrs sets the initial capacity of the fatal error list in the
// returned validation.Result. The default is 100. The Result does not
// enforce it as a limit: every fatal error and warning is kept.
func ValidationMaxErrs(max int) ValidationOption {
	return func(opts *validationOptions) {
		opts.MaxErrs = max
	}
}

// ValidationAlgRegistry sets the registry of available algorithms
// that can be used in an inventory fixity
func ValidationAlgRegistry(r digest.Register) ValidationOption {
	return func(opts *validationOptions) {
		opts.AlgRegistry = r
	}
}

// SkipObjects is used to skip object validation when validating storage roots.
func SkipObjects() ValidationOption {
	return func(opts *validationOptions) {
		opts.SkipObjects = true
	}
}

// SkipDigests is used to skip file digest validation when validating an Object.
func SkipDigests() ValidationOption {
	return func(opts *validationOptions) {
		opts.SkipDigests = true
	}
}

// FallbackOCFL is used to set the OCFL spec referenced in error messages when
// an OCFL spec version cannot be determined during validation. Default is OCFL
// v1.0.
func FallbackOCFL(spec ocfl.Spec) ValidationOption {
	return func(opts *validationOptions) {
		opts.FallbackOCFL = spec
	}
}

func copyValidationOptions(newOpts *validationOptions) ValidationOption {
	return func(opts *validationOptions) {
		*opts = *newOpts
	}
}

func appendResult(r *validation.Result) ValidationOption {
	return func(opts *validationOptions) {
		opts.result = r
	}
}

func validationSetup(vops []ValidationOption) (*validationOptions, *validation.Result) {
	opts := defaultValidationOptions()
	for _, o := range vops {
		o(opts)
	}
	result := opts.result
	if result == nil {
		result = validation.NewResult(opts.MaxErrs)
	}
	return opts, result
}
