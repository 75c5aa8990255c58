// SPDX-License-Identifier: MIT
//
// Package bitint provides power-of-two helpers used for sizing audio
// buffers. All operations are O(1), allocation-free and safe to call
// from real-time code.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Values <= 0 return 1. Exact powers of 2 are preserved; the size-1
// subtraction is what keeps NextPowerOfTwo(8) from returning 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return int(1 << bits.Len64(uint64(size-1)))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
