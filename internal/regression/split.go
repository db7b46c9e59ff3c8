package regression

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// TrainTestSplit shuffles row indices with a seeded generator and holds out
// ceil(n*testSize) of them. The same n, testSize and seed always produce the
// same split. A testSize of 0 puts every row in train.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize < 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("regression: test size %v outside [0, 1)", testSize)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n && n > 0 {
		return nil, nil, fmt.Errorf("regression: test size %v leaves no training rows out of %d", testSize, n)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if nTest == 0 {
		return idx, nil, nil
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx[nTest:], idx[:nTest], nil
}
