package regression

import (
	"math"

	"github.com/khaledhikmat/vqa-go/model"
)

// StandardScaler centers every feature to zero mean and unit variance.
// Fit on training data only; test data goes through Transform with the
// training statistics, so no test-set statistics leak into scaling.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return model.DataShapeErrorf("cannot fit a scaler on zero samples")
	}

	dim := len(X[0])
	s.Mean = make([]float64, dim)
	s.Scale = make([]float64, dim)

	for _, row := range X {
		if len(row) != dim {
			return model.DataShapeErrorf("scaler row length %d does not match %d", len(row), dim)
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	inv := 1.0 / float64(len(X))
	for j := range s.Mean {
		s.Mean[j] *= inv
	}

	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] * inv)
		// constant features pass through unscaled
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}

	return nil
}

func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = r
	}
	return out
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X), nil
}

func (s *StandardScaler) InverseTransform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = v*s.Scale[j] + s.Mean[j]
		}
		out[i] = r
	}
	return out
}

// ScoreScaler standardizes a score vector, treating it as a single
// column. Predictions are inverse-transformed back to the original
// score scale before correlation.
type ScoreScaler struct {
	scaler StandardScaler
}

func (s *ScoreScaler) Fit(y []float64) error {
	return s.scaler.Fit(columns(y))
}

func (s *ScoreScaler) Transform(y []float64) []float64 {
	return flatten(s.scaler.Transform(columns(y)))
}

func (s *ScoreScaler) FitTransform(y []float64) ([]float64, error) {
	if err := s.Fit(y); err != nil {
		return nil, err
	}
	return s.Transform(y), nil
}

func (s *ScoreScaler) InverseTransform(y []float64) []float64 {
	return flatten(s.scaler.InverseTransform(columns(y)))
}

func columns(y []float64) [][]float64 {
	out := make([][]float64, len(y))
	for i, v := range y {
		out[i] = []float64{v}
	}
	return out
}

func flatten(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row[0]
	}
	return out
}
