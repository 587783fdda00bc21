package digest

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknown: a digest algorithm was not recognize
	ErrUnknown = errors.New("unrecognized digest algorithm")
	// ErrMissing: missing an expected digest algorithm
	ErrMissing = errors.New("missing a required digest algorithm")

	// built-in Algorithm register
	builtinRegister = NewRegister(SHA512, SHA256, SHA1, MD5, BLAKE2B)
)

// AlgorithmRegistry is implemented by Register; it's the minimal interface
// needed to resolve algorithm ids to Algorithms during digest validation.
type AlgorithmRegistry interface {
	Get(id string) (Algorithm, error)
	GetAny(ids ...string) []Algorithm
}

// Register is an immutable container of Algs.
type Register struct {
	algs map[string]Algorithm
}

// NewRegister returns a Register for the given extension algs
func NewRegister(algs ...Algorithm) Register {
	newR := Register{
		algs: make(map[string]Algorithm, len(algs)),
	}
	for _, alg := range algs {
		newR.algs[alg.ID()] = alg
	}
	return newR
}

// Get returns the Algorithm for the given id or ErrUnknown if the algorithm is not
// present in the register.
func (r Register) Get(id string) (Algorithm, error) {
	alg, ok := r.algs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	return alg, nil
}

// MustGet is like Get but panics if id isn't present in the register.
func (r Register) MustGet(id string) Algorithm {
	alg, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return alg
}

// GetAny returns the Algorithms in r matching ids, silently skipping any id
// that isn't registered.
func (r Register) GetAny(ids ...string) []Algorithm {
	algs := make([]Algorithm, 0, len(ids))
	for _, id := range ids {
		if alg, ok := r.algs[id]; ok {
			algs = append(algs, alg)
		}
	}
	return algs
}

// All returns every Algorithm in the register.
func (r Register) All() []Algorithm {
	algs := make([]Algorithm, 0, len(r.algs))
	for _, alg := range r.algs {
		algs = append(algs, alg)
	}
	return algs
}

// Len returns the number of Algorithms in the register.
func (r Register) Len() int { return len(r.algs) }

// NewDigester returns a digester for the given id, which must an Algorithm registered
// in r.
func (r Register) NewDigester(id string) (Digester, error) {
	alg, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return alg.Digester(), nil
}

// NewMultiDigester returns a MultiDigester using the algs from r matching
// algIDs. Unrecognized ids are silently skipped.
func (r Register) NewMultiDigester(algIDs ...string) *MultiDigester {
	return NewMultiDigester(r.GetAny(algIDs...)...)
}

// Append returns a new Register that includes algs from r plus additional algs.
// If the added algs have the same id as those in r, the new register will use
// new algs.
func (r Register) Append(algs ...Algorithm) Register {
	newR := Register{
		algs: make(map[string]Algorithm, len(r.algs)+len(algs)),
	}
	for _, alg := range r.algs {
		newR.algs[alg.ID()] = alg
	}
	for _, alg := range algs {
		newR.algs[alg.ID()] = alg
	}
	return newR
}

// IDs returns IDs of all Algs in r.
func (r Register) IDs() []string {
	names := make([]string, 0, len(r.algs))
	for name := range r.algs {
		names = append(names, name)
	}
	return names
}

// DefaultRegister returns a new Register with built-in Algs (sha512, sha256,
// sha1, md5, and blake2b).
func DefaultRegister() Register { return builtinRegister }

// DefaultRegistry is an alias for DefaultRegister.
func DefaultRegistry() Register { return builtinRegister }

// Get returns the built-in Algorithm for id, or ErrUnknown if id isn't a built-in
// algorithm.
func Get(id string) (Algorithm, error) { return builtinRegister.Get(id) }
