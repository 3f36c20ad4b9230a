package similarity

import (
	"math/bits"
	"math/rand"

	"github.com/minio/highwayhash"
)

// mersennePrime is 2^61-1, the modulus of the hash family.
const mersennePrime = uint64(1)<<61 - 1

// paramSeed seeds the pseudo-random stream the hash coefficients are drawn
// from; a fixed seed keeps signatures reproducible across runs and machines.
const paramSeed = 42

// fingerprintKey parameterizes the 64-bit window fingerprints.
var fingerprintKey = [32]byte{
	0x64, 0x6f, 0x63, 0x2d, 0x73, 0x65, 0x6e, 0x74,
	0x72, 0x79, 0x2d, 0x73, 0x68, 0x69, 0x6e, 0x67,
	0x6c, 0x65, 0x2d, 0x66, 0x69, 0x6e, 0x67, 0x65,
	0x72, 0x70, 0x72, 0x69, 0x6e, 0x74, 0x2d, 0x31,
}

// MinHasher holds the shared parameter vectors of a num_perm hash family
// h_i(x) = (a_i*x + b_i) mod 2^61-1. It is built once per run and shared
// immutably across workers.
type MinHasher struct {
	a []uint64
	b []uint64
}

// NewMinHasher draws the coefficient vectors from a seeded stream.
func NewMinHasher(numPerm int) *MinHasher {
	if numPerm <= 0 {
		numPerm = 128
	}
	rnd := rand.New(rand.NewSource(paramSeed))
	h := &MinHasher{a: make([]uint64, numPerm), b: make([]uint64, numPerm)}
	for i := 0; i < numPerm; i++ {
		h.a[i] = 1 + uint64(rnd.Int63n(int64(mersennePrime-2)))
		h.b[i] = uint64(rnd.Int63n(int64(mersennePrime - 1)))
	}
	return h
}

// NumPerm returns the signature length.
func (h *MinHasher) NumPerm() int { return len(h.a) }

// Shingle computes the 8-byte fingerprints of overlapping windows of data
// with stride window/4, capped at maxTokens distinct values. Inputs shorter
// than the window yield an empty set.
func Shingle(data []byte, window, maxTokens int) map[uint64]bool {
	tokens := make(map[uint64]bool)
	if len(data) == 0 || window <= 0 || len(data) < window {
		return tokens
	}
	stride := window / 4
	if stride < 1 {
		stride = 1
	}
	for i := 0; i+window <= len(data); i += stride {
		tokens[highwayhash.Sum64(data[i:i+window], fingerprintKey[:])] = true
		if maxTokens > 0 && len(tokens) >= maxTokens {
			break
		}
	}
	return tokens
}

// Signature computes the per-function minimum over the shingle set. Empty
// sets sign as P-1 in every position.
func (h *MinHasher) Signature(tokens map[uint64]bool) []uint64 {
	sig := make([]uint64, len(h.a))
	for i := range sig {
		sig[i] = mersennePrime - 1
	}
	for x := range tokens {
		x %= mersennePrime
		for i := range h.a {
			hi, lo := bits.Mul64(h.a[i], x)
			v := bits.Rem64(hi, lo, mersennePrime)
			v = (v + h.b[i]) % mersennePrime
			if v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

// SignatureSimilarity is the fraction of equal positions between two
// signatures, the exact verification metric applied after LSH candidate
// generation.
func SignatureSimilarity(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	equal := 0
	for i := range a {
		if a[i] == b[i] {
			equal++
		}
	}
	return float64(equal) / float64(len(a))
}
