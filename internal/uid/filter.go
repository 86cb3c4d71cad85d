package uid

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// seenFilter is a small bloom filter over created names. It answers
// "definitely never created" so a cache miss after a warm Refresh can skip
// the store round trip. False positives only cost the fallback read; false
// negatives cannot occur.
type seenFilter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
}

const filterTargetFPR = 0.01

// newSeenFilter sizes a filter for the expected number of names at a 1%
// false positive rate.
func newSeenFilter(expected int) *seenFilter {
	if expected < 64 {
		expected = 64
	}
	n := float64(expected)
	m := -n * math.Log(filterTargetFPR) / (math.Ln2 * math.Ln2)
	k := (m / n) * math.Ln2

	numBits := uint64(math.Ceil(m))
	numWords := (numBits + 63) / 64
	numHashes := uint64(math.Ceil(k))
	if numHashes < 1 {
		numHashes = 1
	}

	return &seenFilter{
		bits:      make([]uint64, numWords),
		numBits:   numWords * 64,
		numHashes: numHashes,
	}
}

// Add records a name. The caller holds the owning Map's write lock.
func (f *seenFilter) Add(name []byte) {
	h1, h2 := murmur3.Sum128(name)
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
}

// MightContain reports whether the name may have been created. A false
// result is definitive.
func (f *seenFilter) MightContain(name []byte) bool {
	h1, h2 := murmur3.Sum128(name)
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}
