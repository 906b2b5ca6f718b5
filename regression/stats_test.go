package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpearmanMonotonic(t *testing.T) {
	// monotonic but nonlinear: rank correlation is exactly 1
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 8, 27, 64, 125}

	coef, pval := Spearman(x, y)
	require.InDelta(t, 1, coef, 1e-12)
	require.InDelta(t, 0, pval, 1e-12)

	// reversing one side flips the sign
	rev := []float64{125, 64, 27, 8, 1}
	coef, _ = Spearman(x, rev)
	require.InDelta(t, -1, coef, 1e-12)
}

func TestSpearmanPValue(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{2, 1, 4, 3, 6, 5, 8, 7}

	coef, pval := Spearman(x, y)

	// adjacent swaps leave a strong but imperfect correlation
	require.Greater(t, coef, 0.8)
	require.Less(t, coef, 1.0)
	require.Greater(t, pval, 0.0)
	require.Less(t, pval, 0.05)
}

func TestSpearmanDegenerate(t *testing.T) {
	coef, pval := Spearman([]float64{1, 1, 1}, []float64{1, 2, 3})
	require.True(t, math.IsNaN(coef))
	require.True(t, math.IsNaN(pval))

	coef, _ = Spearman([]float64{1}, []float64{2})
	require.True(t, math.IsNaN(coef))

	coef, _ = Spearman([]float64{1, 2}, []float64{1, 2, 3})
	require.True(t, math.IsNaN(coef))
}

func TestRanksAverageTies(t *testing.T) {
	out := ranks([]float64{3, 1, 4, 1, 5})
	require.Equal(t, []float64{3, 1.5, 4, 1.5, 5}, out)

	// all tied: everyone gets the middle rank
	out = ranks([]float64{2, 2, 2})
	require.Equal(t, []float64{2, 2, 2}, out)
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	require.InDelta(t, 1, Pearson(x, []float64{2, 4, 6, 8}), 1e-12)
	require.InDelta(t, -1, Pearson(x, []float64{8, 6, 4, 2}), 1e-12)
	require.True(t, math.IsNaN(Pearson(x, []float64{5, 5, 5, 5})))
	require.True(t, math.IsNaN(Pearson(x, []float64{1, 2})))
}

func TestAbsAggregatesSkipNaN(t *testing.T) {
	xs := []float64{0.8, -0.6, math.NaN(), 0.7}

	require.InDelta(t, 0.7, meanAbs(xs), 1e-12)
	require.InDelta(t, 0.7, medianAbs(xs), 1e-12)

	require.True(t, math.IsNaN(meanAbs([]float64{math.NaN()})))
	require.True(t, math.IsNaN(medianAbs(nil)))
}

func TestMedianAbsEven(t *testing.T) {
	require.InDelta(t, 0.5, medianAbs([]float64{0.4, -0.6, 0.2, 0.8}), 1e-12)
}
