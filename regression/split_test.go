package regression

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vqa-go/model"
)

// 6 groups of 5 samples, in dataset order.
func groupedSamples() []int {
	groups := make([]int, 30)
	for i := range groups {
		groups[i] = i / 5
	}
	return groups
}

func TestGroupShuffleSplitKeepsGroupsTogether(t *testing.T) {
	groups := groupedSamples()
	rng := rand.New(rand.NewSource(1))

	folds, err := GroupShuffleSplit(groups, 20, 0.8, rng)
	require.NoError(t, err)
	require.Len(t, folds, 20)

	for _, fold := range folds {
		trainGroups := map[int]bool{}
		for _, i := range fold.Train {
			trainGroups[groups[i]] = true
		}
		for _, i := range fold.Test {
			require.False(t, trainGroups[groups[i]],
				"group %d appears on both sides", groups[i])
		}

		// every sample lands on exactly one side
		require.Equal(t, len(groups), len(fold.Train)+len(fold.Test))

		// 0.8 of 6 groups rounds to 5 train groups, 1 test group
		require.Len(t, fold.TestGroups, 1)
		require.Len(t, fold.Test, 5)
	}
}

func TestGroupShuffleSplitTestGroupsRecorded(t *testing.T) {
	groups := groupedSamples()
	rng := rand.New(rand.NewSource(3))

	folds, err := GroupShuffleSplit(groups, 10, 0.5, rng)
	require.NoError(t, err)

	for _, fold := range folds {
		require.True(t, sort.IntsAreSorted(fold.TestGroups))

		testGroups := map[int]bool{}
		for _, g := range fold.TestGroups {
			testGroups[g] = true
		}
		for _, i := range fold.Test {
			require.True(t, testGroups[groups[i]])
		}
	}
}

func TestGroupShuffleSplitDeterministic(t *testing.T) {
	groups := groupedSamples()

	a, err := GroupShuffleSplit(groups, 5, 0.8, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := GroupShuffleSplit(groups, 5, 0.8, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestGroupShuffleSplitErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := GroupShuffleSplit(nil, 5, 0.8, rng)
	require.True(t, errors.Is(err, model.ErrDataShape))

	_, err = GroupShuffleSplit(groupedSamples(), 5, 1.5, rng)
	require.True(t, errors.Is(err, model.ErrConfig))

	// a single group cannot be partitioned
	_, err = GroupShuffleSplit([]int{0, 0, 0}, 5, 0.8, rng)
	require.True(t, errors.Is(err, model.ErrDataShape))
}

func TestRepeatedKFoldPartitions(t *testing.T) {
	n, k, repeats := 11, 3, 4
	rng := rand.New(rand.NewSource(7))

	folds, err := RepeatedKFold(n, k, repeats, rng)
	require.NoError(t, err)
	require.Len(t, folds, k*repeats)

	for r := 0; r < repeats; r++ {
		covered := map[int]int{}
		for f := 0; f < k; f++ {
			fold := folds[r*k+f]
			require.Equal(t, n, len(fold.Train)+len(fold.Test))

			// fold sizes differ by at most one
			require.GreaterOrEqual(t, len(fold.Test), n/k)
			require.LessOrEqual(t, len(fold.Test), n/k+1)

			trainSet := map[int]bool{}
			for _, i := range fold.Train {
				trainSet[i] = true
			}
			for _, i := range fold.Test {
				require.False(t, trainSet[i])
				covered[i]++
			}
		}

		// within one repetition every sample is tested exactly once
		require.Len(t, covered, n)
		for i, count := range covered {
			require.Equal(t, 1, count, "sample %d", i)
		}
	}
}

func TestRepeatedKFoldDeterministic(t *testing.T) {
	a, err := RepeatedKFold(20, 5, 2, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	b, err := RepeatedKFold(20, 5, 2, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestRepeatedKFoldErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := RepeatedKFold(0, 5, 1, rng)
	require.True(t, errors.Is(err, model.ErrDataShape))

	_, err = RepeatedKFold(10, 1, 1, rng)
	require.True(t, errors.Is(err, model.ErrConfig))

	_, err = RepeatedKFold(3, 5, 1, rng)
	require.True(t, errors.Is(err, model.ErrConfig))
}
