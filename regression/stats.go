package regression

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson returns the linear correlation between x and y, or NaN when
// either side is constant (degenerate correlations are reported, not
// crashed on).
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

// Spearman returns the rank correlation coefficient and its two-sided
// p-value under the usual Student's t approximation. Tied values get
// averaged ranks. Degenerate inputs yield NaN for both.
func Spearman(x, y []float64) (coef, pval float64) {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN(), math.NaN()
	}

	coef = Pearson(ranks(x), ranks(y))
	if math.IsNaN(coef) {
		return math.NaN(), math.NaN()
	}

	n := float64(len(x))
	if n <= 2 {
		return coef, math.NaN()
	}
	if 1-coef*coef <= 0 {
		// perfect correlation
		return coef, 0
	}

	t := coef * math.Sqrt((n-2)/(1-coef*coef))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
	pval = 2 * dist.CDF(-math.Abs(t))

	return coef, pval
}

// ranks assigns 1-based ranks, averaging over ties.
func ranks(x []float64) []float64 {
	n := len(x)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return x[order[a]] < x[order[b]]
	})

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[order[j+1]] == x[order[i]] {
			j++
		}
		// average rank across the tie run [i, j]
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[order[k]] = avg
		}
		i = j + 1
	}

	return out
}

// meanAbs and medianAbs aggregate correlation sequences, excluding NaN
// folds (degenerate correlations are counted separately by the caller).
func meanAbs(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		sum += math.Abs(v)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func medianAbs(xs []float64) float64 {
	var abs []float64
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		abs = append(abs, math.Abs(v))
	}
	if len(abs) == 0 {
		return math.NaN()
	}
	sort.Float64s(abs)
	mid := len(abs) / 2
	if len(abs)%2 == 1 {
		return abs[mid]
	}
	return (abs[mid-1] + abs[mid]) / 2
}
