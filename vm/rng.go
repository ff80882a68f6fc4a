package vm

import "math/rand"

// RNGSource is the pluggable seam the RND instruction draws from. Tests
// inject a seeded Source so that runs are byte-exact reproducible; the
// default VM uses an OS-seeded source.
//
// Bounded must return a uniform value in the closed interval [0, x]. When
// x == 0xFFFF the draw covers all 65536 possible words.
type RNGSource interface {
	Bounded(x Word) Word
}

// mathRandSource adapts *rand.Rand to the RNGSource seam.
type mathRandSource struct {
	r *rand.Rand
}

// NewRNG returns a deterministic RNGSource seeded with seed. Two VMs
// constructed with the same seed and driven identically produce identical
// RND draws.
func NewRNG(seed int64) RNGSource {
	return &mathRandSource{r: rand.New(rand.NewSource(seed))} //nolint:gosec // deterministic by design, not cryptographic
}

// NewOSRNG returns a non-deterministic RNGSource seeded from the runtime
// clock, suitable for interactive use outside of tests.
func NewOSRNG() RNGSource {
	return NewRNG(osSeed())
}

func (m *mathRandSource) Bounded(x Word) Word {
	if x == 0xFFFF {
		return Word(m.r.Intn(1 << 16))
	}
	return Word(m.r.Intn(int(x) + 1))
}
