package regression

import (
	"math"

	"github.com/khaledhikmat/vqa-go/model"
)

// SVR is an epsilon-insensitive support vector regressor with an RBF
// kernel, solved by coordinate descent on the dual with the bias folded
// into the kernel (K + 1). Kernel and epsilon are fixed; gamma follows
// the "scale" heuristic 1/(d * var(X)).
type SVR struct {
	C       float64
	Epsilon float64
	Tol     float64
	MaxIter int

	gamma   float64
	beta    []float64
	support [][]float64
}

func NewSVR() *SVR {
	return &SVR{
		C:       1.0,
		Epsilon: 0.3,
		Tol:     1e-4,
		MaxIter: 1000,
	}
}

func (s *SVR) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || len(y) != n {
		return model.DataShapeErrorf("svr fit: %d samples vs %d targets", n, len(y))
	}
	d := len(X[0])
	if d == 0 {
		return model.DataShapeErrorf("svr fit: zero-length feature vectors")
	}

	s.gamma = scaleGamma(X)

	// kernel matrix with the +1 bias augmentation
	K := make([][]float64, n)
	for i := 0; i < n; i++ {
		K[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			v := s.rbf(X[i], X[j]) + 1
			K[i][j] = v
			K[j][i] = v
		}
	}

	beta := make([]float64, n)
	Kbeta := make([]float64, n)

	for iter := 0; iter < s.MaxIter; iter++ {
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			q := Kbeta[i] - K[i][i]*beta[i] - y[i]

			var next float64
			switch {
			case q < -s.Epsilon:
				next = (-q - s.Epsilon) / K[i][i]
			case q > s.Epsilon:
				next = (-q + s.Epsilon) / K[i][i]
			default:
				next = 0
			}
			next = math.Max(-s.C, math.Min(s.C, next))

			delta := next - beta[i]
			if delta != 0 {
				for j := 0; j < n; j++ {
					Kbeta[j] += delta * K[i][j]
				}
				beta[i] = next
			}
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}
		if maxDelta < s.Tol {
			break
		}
	}

	s.beta = beta
	s.support = make([][]float64, n)
	for i, row := range X {
		s.support[i] = append([]float64(nil), row...)
	}

	return nil
}

func (s *SVR) Predict(X [][]float64) ([]float64, error) {
	if s.beta == nil {
		return nil, model.ConfigErrorf("svr predict called before fit")
	}

	out := make([]float64, len(X))
	for i, x := range X {
		sum := 0.0
		for j, sv := range s.support {
			if s.beta[j] == 0 {
				continue
			}
			sum += s.beta[j] * (s.rbf(sv, x) + 1)
		}
		out[i] = sum
	}

	return out, nil
}

func (s *SVR) rbf(a, b []float64) float64 {
	dist := 0.0
	for i := range a {
		d := a[i] - b[i]
		dist += d * d
	}
	return math.Exp(-s.gamma * dist)
}

func scaleGamma(X [][]float64) float64 {
	n, d := len(X), len(X[0])

	mean, sq := 0.0, 0.0
	count := float64(n * d)
	for _, row := range X {
		for _, v := range row {
			mean += v
			sq += v * v
		}
	}
	mean /= count
	variance := sq/count - mean*mean

	if variance <= 0 {
		variance = 1
	}
	return 1 / (float64(d) * variance)
}
