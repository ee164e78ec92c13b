package learn

import (
	"math"
	"math/rand/v2"
)

// DefaultSeed keeps holdout splits and forests reproducible between runs.
const DefaultSeed uint64 = 42

// TrainTestSplit shuffles n sample indices and holds out ceil(testFraction·n)
// of them for evaluation.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int) {
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest >= n && n > 0 {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}

// Take selects rows by index.
func Take[T any](rows []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}
