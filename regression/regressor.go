package regression

import (
	"math/rand"

	"github.com/khaledhikmat/vqa-go/model"
)

const (
	RegressorSVR = "svr"
	RegressorNN  = "nn"
)

// Regressor is the capability shared by both concrete variants; the
// per-fold procedure is identical no matter which one is plugged in.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// NewRegressor resolves a regressor by name. Unknown names are a
// configuration error.
func NewRegressor(name string, rng *rand.Rand) (Regressor, error) {
	switch name {
	case RegressorSVR:
		return NewSVR(), nil
	case RegressorNN:
		return NewFeedForward(rng), nil
	}

	return nil, model.ConfigErrorf("unknown regressor %q", name)
}
