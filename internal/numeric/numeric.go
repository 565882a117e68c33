// Package numeric provides one generic parse-and-range-check helper shared
// by every signed/unsigned/float width the scalar parsers need, instead of
// one strconv.Parse{Int,Uint,Float} call site per width.
package numeric

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/constraints"
)

// ParseSigned parses s as base-10 and range-checks it against T's width.
func ParseSigned[T constraints.Signed](s string) (T, error) {
	var zero T

	bits := bitsOf(zero)

	v, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return zero, fmt.Errorf("invalid integer %q: %w", s, unwrapNumErr(err))
	}

	return T(v), nil
}

// ParseUnsigned parses s as base-10 and range-checks it against T's width.
func ParseUnsigned[T constraints.Unsigned](s string) (T, error) {
	var zero T

	bits := bitsOfUnsigned(zero)

	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return zero, fmt.Errorf("invalid unsigned integer %q: %w", s, unwrapNumErr(err))
	}

	return T(v), nil
}

// ParseFloat parses s against T's width.
func ParseFloat[T constraints.Float](s string) (T, error) {
	var zero T

	bits := 64
	if any(zero) == any(float32(0)) {
		bits = 32
	}

	v, err := strconv.ParseFloat(s, bits)
	if err != nil {
		return zero, fmt.Errorf("invalid float %q: %w", s, unwrapNumErr(err))
	}

	return T(v), nil
}

func unwrapNumErr(err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err
	}

	return err
}

func bitsOf[T constraints.Signed](_ T) int {
	var v T

	switch any(v).(type) {
	case int8:
		return 8
	case int16:
		return 16
	case int32:
		return 32
	case int64:
		return 64
	default:
		return 64 // int
	}
}

func bitsOfUnsigned[T constraints.Unsigned](_ T) int {
	var v T

	switch any(v).(type) {
	case uint8:
		return 8
	case uint16:
		return 16
	case uint32:
		return 32
	case uint64:
		return 64
	default:
		return 64 // uint, uintptr
	}
}
