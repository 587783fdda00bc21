package ocfl

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

var (
	ErrVNumInvalid = errors.New(`invalid version`)
	ErrVNumPadding = errors.New(`inconsistent version padding in version sequence`)
	ErrVNumMissing = errors.New(`missing version in version sequence`)
	ErrVerEmpty    = errors.New("no versions found")

	// Some functions in this package use the zero value VNum to indicate the
	// most recent, "head" version.
	Head = VNum{}
)

// versionPrefix and revisionPrefix are the two numbering schemes VNum
// supports: object version directories ("v1", "v02", ...) and, inside the
// mutable-head extension, staged revisions ("r1", "r2", ...). The zero
// value of the unexported prefix field is treated as versionPrefix so
// existing zero-value VNums (e.g. Head) keep behaving as version numbers.
const (
	versionPrefix  = 'v'
	revisionPrefix = 'r'
)

// VNum represents a sequence number with an OCFL-style letter prefix: an
// object version number ("v1", "v02") or, when built with R(), a
// mutable-head revision number ("r1", "r2"). A VNum has a sequence number
// (1,2,3...) and a padding number, which defaults to zero. The padding is
// the maximum number of numeric digits the number can include (a padding of
// 0 is no maximum). The padding value constrains the maximum valid sequence
// number.
type VNum struct {
	num     int  // positive integers 1,2,3..
	padding int  // should be zero, but can be 2,3,4
	prefix  byte // 'v' or 'r'; zero value means 'v'
}

func (v VNum) letter() byte {
	if v.prefix == 0 {
		return versionPrefix
	}
	return v.prefix
}

// IsRevision reports whether v was built as a revision number (R, ParseRNum)
// rather than a version number.
func (v VNum) IsRevision() bool { return v.letter() == revisionPrefix }

// V returns a new version VNum. The first argument is a sequence number. An
// optional second argument can be used to set the padding. Additional
// arguments are ignored. Without any arguments, V() returns a zero value
// VNum.
func V(ns ...int) VNum {
	return newNum(versionPrefix, ns)
}

// R returns a new revision VNum, used for mutable-head revision numbers
// ("r1", "r2", ...). Arguments behave as for V.
func R(ns ...int) VNum {
	return newNum(revisionPrefix, ns)
}

func newNum(prefix byte, ns []int) VNum {
	switch len(ns) {
	case 0:
		return VNum{prefix: prefix}
	case 1:
		return VNum{num: ns[0], prefix: prefix}
	default:
		return VNum{num: ns[0], padding: ns[1], prefix: prefix}
	}
}

// ParseVNum parses string as a version VNum ("v1", "v02", ...) and sets the
// value referenced by vn.
func ParseVNum(v string, vn *VNum) error {
	return parseNum(v, versionPrefix, vn)
}

// ParseRNum parses string as a revision VNum ("r1", "r02", ...) and sets the
// value referenced by vn.
func ParseRNum(v string, vn *VNum) error {
	return parseNum(v, revisionPrefix, vn)
}

func parseNum(v string, want byte, vn *VNum) error {
	var n, p int
	var nonzero bool
	var err error
	if len(v) < 2 {
		return fmt.Errorf("%s: %w", v, ErrVNumInvalid)
	}
	if v[0] != want {
		return fmt.Errorf("%s: %w", v, ErrVNumInvalid)
	}
	if v[1] == '0' {
		p = len(v) - 1
	}
	for i := 1; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fmt.Errorf("%s: %w", v, ErrVNumInvalid)
		}
		if v[i] != '0' {
			nonzero = true
		}
	}
	if !nonzero {
		return fmt.Errorf("%s: %w", v, ErrVNumInvalid)
	}
	if n, err = strconv.Atoi(v[1:]); err != nil {
		return fmt.Errorf("%s: %w", v, ErrVNumInvalid)
	}
	vn.num = n
	vn.padding = p
	vn.prefix = want
	return nil
}

// MustParseVNum parses str as a version VNum and returns a new VNum. It
// panics if str cannot be parsed.
func MustParseVNum(str string) VNum {
	v := VNum{}
	if err := ParseVNum(str, &v); err != nil {
		panic(err)
	}
	return v
}

// Num returns v's number as an int
func (v VNum) Num() int {
	return v.num
}

// Padding returns v's padding number.
func (v VNum) Padding() int {
	return v.padding
}

// IsZero returns if v is the zero value
func (v VNum) IsZero() bool {
	return v == Head
}

// First returns true if v is the first in its sequence (v1 or r1).
func (v VNum) First() bool {
	return v.num == 1
}

// Next returns the next VNum after v, with the same prefix and padding. A
// non-nil error is returned if padding > 0 and next would overflow the
// padding.
func (v VNum) Next() (VNum, error) {
	next := VNum{
		num:     v.num + 1,
		padding: v.padding,
		prefix:  v.prefix,
	}
	if next.paddingOverflow() {
		err := fmt.Errorf("next version: padding overflow: %w", ErrVNumInvalid)
		return VNum{}, err
	}
	return next, nil
}

// Prev returns the previous VNum before v, with the same prefix and
// padding. An error is returned if v.Num() == 1.
func (v VNum) Prev() (VNum, error) {
	if v.num == 1 {
		return VNum{prefix: v.prefix}, errors.New("no previous version")
	}
	return VNum{
		num:     v.num - 1,
		padding: v.padding,
		prefix:  v.prefix,
	}, nil
}

// String returns string representation of v
func (v VNum) String() string {
	format := fmt.Sprintf("%c%%0%dd", v.letter(), v.padding)
	return fmt.Sprintf(format, v.num)
}

// Valid returns an error if v is invalid
func (v VNum) Valid() error {
	if v.num <= 0 || v.paddingOverflow() {
		return fmt.Errorf("%w: num=%d, padding=%d",
			ErrVNumInvalid, v.num, v.padding)
	}
	return nil
}

// paddingOverflow indicates v.padding is too small for v.num
func (v VNum) paddingOverflow() bool {
	return v.padding > 0 && v.num >= int(math.Pow10(v.padding-1))
}

// Lineage returns a VNums with v as the head, sharing v's prefix.
func (v VNum) Lineage() VNums {
	if v.num == 0 {
		return VNums{}
	}
	nums := make(VNums, v.num)
	for i := 0; i < v.num; i++ {
		nums[i] = VNum{num: i + 1, padding: v.padding, prefix: v.prefix}
	}
	return nums
}

// Interfaces VNum implements
var _ encoding.TextUnmarshaler = (*VNum)(nil)
var _ encoding.TextMarshaler = (*VNum)(nil)

func (v *VNum) UnmarshalText(text []byte) error {
	return ParseVNum(string(text), v)
}

func (v VNum) MarshalText() ([]byte, error) {
	if err := v.Valid(); err != nil {
		return nil, err
	}
	return []byte(v.String()), nil
}

// VNums is a slice of VNum elements
type VNums []VNum

// Valid returns a non-nill error if VNums is empty, is not a continuous
// sequence (1,2,3...), has inconsistent padding or padding overflow.
func (vs VNums) Valid() error {
	if len(vs) == 0 {
		return ErrVerEmpty
	}
	if !sort.IsSorted(vs) {
		sort.Sort(vs)
	}
	padding := vs[0].padding
	for i := range vs {
		if vs[i].num != i+1 {
			return fmt.Errorf("%w: %s", ErrVNumMissing, V(i+1, padding))
		}
		if vs[i].padding != padding {
			return ErrVNumPadding
		}
	}
	// check that the last version doesn't have a padding overflow
	return vs.Head().Valid()
}

// Head returns the last VNum in vs.
func (vs VNums) Head() VNum {
	if len(vs) > 0 {
		return vs[len(vs)-1]
	}
	return VNum{}
}

// Padding returns the padding for the VNums in vs
func (vs VNums) Padding() int {
	if len(vs) > 0 {
		return vs[0].Padding()
	}
	return 0
}

// VNums implements the sort.Interface interface
var _ sort.Interface = (*VNums)(nil)

// Len implements sort.Interface on VNums
func (vs VNums) Len() int {
	return len(([]VNum)(vs))
}

// Less implements sort.Interface on VNums
func (vs VNums) Less(i, j int) bool {
	return (vs[i].num < vs[j].num)
}

// Swap implements sort.Interface on VNums
func (vs VNums) Swap(i, j int) {
	vs[i], vs[j] = vs[j], vs[i]
}
