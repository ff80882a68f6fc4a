package vm

import "time"

// osSeed is the sole non-deterministic value in the package: a clock-derived
// seed for interactive (non-test) use. Isolated here so every other seam
// stays reproducible given an explicit seed.
func osSeed() int64 {
	return time.Now().UnixNano()
}
