package seedkey

import (
	"bytes"
	"testing"
)

func TestComputeKeyDeterministic(t *testing.T) {
	seed := []byte{0x12, 0x34, 0x56, 0x78}

	a := ComputeKey(seed, 0xDEADBEEF)
	b := ComputeKey(seed, 0xDEADBEEF)
	if !bytes.Equal(a, b) {
		t.Fatalf("same inputs gave % X and % X", a, b)
	}
	if len(a) != KeyLength {
		t.Fatalf("key length = %d, want %d", len(a), KeyLength)
	}
}

func TestComputeKeyDependsOnSeed(t *testing.T) {
	a := ComputeKey([]byte{0x12, 0x34, 0x56, 0x78}, 0xDEADBEEF)
	b := ComputeKey([]byte{0x12, 0x34, 0x56, 0x79}, 0xDEADBEEF)
	if bytes.Equal(a, b) {
		t.Fatalf("different seeds gave the same key % X", a)
	}
}

func TestComputeKeyDependsOnSecret(t *testing.T) {
	seed := []byte{0xA0, 0xB1, 0xC2, 0xD3}

	a := ComputeKey(seed, 0xDEADBEEF)
	b := ComputeKey(seed, 0xCAFEBABE)
	if bytes.Equal(a, b) {
		t.Fatalf("different secrets gave the same key % X", a)
	}
}

func TestComputeKeyZeroSeed(t *testing.T) {
	got := ComputeKey([]byte{0, 0, 0, 0}, 0)

	// temp = 0, rotl13 ^ 0xDEADBEEF = 0xDEADBEEF, rotl7 ^ 0 = 0x56DF77EF
	want := []byte{0x56, 0xDF, 0x77, 0xEF}
	if !bytes.Equal(got, want) {
		t.Fatalf("ComputeKey(zero) = % X, want % X", got, want)
	}
}
