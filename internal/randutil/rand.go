package randutil

import rand "math/rand/v2"

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// SeedFromSubject derives a deterministic int64 seed from a subject id
// string, so that rerunning a subject reproduces the same jitter and
// staircase sample sequence (invariant 8).
func SeedFromSubject(subjectID string) int64 {
	var h uint64 = 0xcbf29ce484222325 // FNV-1a offset basis
	for i := 0; i < len(subjectID); i++ {
		h ^= uint64(subjectID[i])
		h *= 0x100000001b3
	}
	return int64(mix(h))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
