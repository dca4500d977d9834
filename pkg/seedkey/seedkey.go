// Package seedkey holds the seed to key derivation shared by the slave's
// security gate and host side key calculators.
//
// The algorithm is an XOR fold with two rotate-and-mix rounds. It is NOT a
// cryptographic scheme and was never meant to be one, it only keeps casual
// tools from poking protected resources on the bench. A production ECU must
// swap this for a vetted keyed hash.
package seedkey

import "math/bits"

const (
	SeedLength = 4
	KeyLength  = 4
)

// ComputeKey derives the unlock key for a seed under the shared secret.
// Deterministic, same inputs always give the same key.
func ComputeKey(seed []byte, secret uint32) []byte {
	var temp uint32
	for i, b := range seed {
		temp ^= uint32(b) << ((i % 4) * 8)
	}
	temp ^= secret

	temp = bits.RotateLeft32(temp, 13) ^ 0xDEADBEEF
	temp = bits.RotateLeft32(temp, 7) ^ secret

	return []byte{
		byte(temp >> 24),
		byte(temp >> 16),
		byte(temp >> 8),
		byte(temp),
	}
}
