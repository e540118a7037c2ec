// Package safecast converts between integer widths, failing instead of
// silently wrapping when a value does not fit.
package safecast

import (
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Uint64ToUint8 converts value to uint8.
func Uint64ToUint8(value uint64) (uint8, error) {
	if value > math.MaxUint8 {
		return 0, errors.Wrapf(ErrOverflow, "value %d exceeds uint8 range", value)
	}
	return cast.ToUint8E(value)
}

// Uint64ToUint32 converts value to uint32.
func Uint64ToUint32(value uint64) (uint32, error) {
	if value > math.MaxUint32 {
		return 0, errors.Wrapf(ErrOverflow, "value %d exceeds uint32 range", value)
	}
	return cast.ToUint32E(value)
}

// Uint64ToInt64 converts value to int64.
func Uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, errors.Wrapf(ErrOverflow, "value %d exceeds int64 range", value)
	}
	return cast.ToInt64E(value)
}

// Int64ToUint64 converts value to uint64.
func Int64ToUint64(value int64) (uint64, error) {
	if value < 0 {
		return 0, errors.Wrapf(ErrOverflow, "value %d is negative", value)
	}
	return cast.ToUint64E(value)
}
