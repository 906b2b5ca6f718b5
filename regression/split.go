package regression

import (
	"math/rand"
	"sort"

	"github.com/khaledhikmat/vqa-go/model"
)

// Fold is one train/test partition of video indices. Train and test are
// disjoint; for the grouped strategy their union may not cover all
// indices. TestGroups records which groups fell into the test side, for
// reproducibility and debugging.
type Fold struct {
	Train      []int
	Test       []int
	TestGroups []int
}

// GroupShuffleSplit samples nSplits random partitions that keep whole
// groups together: a group id never appears on both sides of a fold.
// trainFraction applies to the number of groups, matching the source
// leakage constraint (videos derived from the same pristine source stay
// together).
func GroupShuffleSplit(groups []int, nSplits int, trainFraction float64, rng *rand.Rand) ([]Fold, error) {
	if len(groups) == 0 {
		return nil, model.DataShapeErrorf("cannot split zero samples")
	}
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, model.ConfigErrorf("train fraction %v out of (0,1)", trainFraction)
	}

	seen := map[int]bool{}
	var unique []int
	for _, g := range groups {
		if !seen[g] {
			seen[g] = true
			unique = append(unique, g)
		}
	}
	sort.Ints(unique)

	if len(unique) < 2 {
		return nil, model.DataShapeErrorf("grouped split needs at least 2 groups, got %d", len(unique))
	}

	nTrain := int(trainFraction*float64(len(unique)) + 0.5)
	if nTrain < 1 {
		nTrain = 1
	}
	if nTrain >= len(unique) {
		nTrain = len(unique) - 1
	}

	folds := make([]Fold, 0, nSplits)
	for s := 0; s < nSplits; s++ {
		shuffled := make([]int, len(unique))
		copy(shuffled, unique)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		trainGroups := map[int]bool{}
		for _, g := range shuffled[:nTrain] {
			trainGroups[g] = true
		}

		var fold Fold
		for i, g := range groups {
			if trainGroups[g] {
				fold.Train = append(fold.Train, i)
			} else {
				fold.Test = append(fold.Test, i)
			}
		}

		testGroups := append([]int(nil), shuffled[nTrain:]...)
		sort.Ints(testGroups)
		fold.TestGroups = testGroups

		folds = append(folds, fold)
	}

	return folds, nil
}

// RepeatedKFold partitions n samples into k folds, repeated `repeats`
// times with a fresh shuffle each repetition. Within one repetition
// every sample lands in exactly one test fold.
func RepeatedKFold(n, k, repeats int, rng *rand.Rand) ([]Fold, error) {
	if n == 0 {
		return nil, model.DataShapeErrorf("cannot split zero samples")
	}
	if k < 2 || k > n {
		return nil, model.ConfigErrorf("k-fold needs 2 <= k <= n, got k=%d n=%d", k, n)
	}

	var folds []Fold
	for r := 0; r < repeats; r++ {
		perm := rng.Perm(n)

		// fold sizes differ by at most one
		base, extra := n/k, n%k
		offset := 0
		for f := 0; f < k; f++ {
			size := base
			if f < extra {
				size++
			}

			test := append([]int(nil), perm[offset:offset+size]...)
			train := make([]int, 0, n-size)
			train = append(train, perm[:offset]...)
			train = append(train, perm[offset+size:]...)
			offset += size

			sort.Ints(test)
			sort.Ints(train)
			folds = append(folds, Fold{Train: train, Test: test})
		}
	}

	return folds, nil
}
