package ocfl

// ValidationCode represents a validation error or warning code defined in an
// OCFL specification. See https://ocfl.io/1.1/spec/validation-codes.html
type ValidationCode struct {
	Spec        Spec   // OCFL spec version that the code refers to (e.g. '1.1')
	Code        string // validation error code from the OCFL spec
	Description string // error description from the spec
	URL         string // URL to the OCFL specification section for the error
}

func (c *ValidationCode) Error() string {
	if c == nil {
		return ""
	}
	return c.Code + ": " + c.Description
}
