package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/khaledhikmat/vqa-go/model"
)

// Gram computes the flattened Gram matrix of an activation tensor: the
// channel dimension is reshaped against the spatial dimensions to a
// C x (H*W) matrix A, and the result is A*Aᵀ flattened row-major to a
// vector of length C². Symmetric positive semi-definite by construction.
func Gram(a Activation) ([]float64, error) {
	if len(a.Dims) != 4 {
		return nil, model.DataShapeErrorf("activation %q has rank %d, expected 4", a.Name, len(a.Dims))
	}

	batch, channels, height, width := a.Dims[0], a.Dims[1], a.Dims[2], a.Dims[3]
	if batch != 1 {
		return nil, model.DataShapeErrorf("activation %q has batch %d, expected 1", a.Name, batch)
	}

	spatial := height * width
	if channels <= 0 || spatial <= 0 {
		return nil, model.DataShapeErrorf("activation %q has empty extent (%d channels, %d spatial)", a.Name, channels, spatial)
	}

	if len(a.Data) != channels*spatial {
		return nil, model.DataShapeErrorf("activation %q carries %d values, expected %d", a.Name, len(a.Data), channels*spatial)
	}

	flat := make([]float64, len(a.Data))
	for i, v := range a.Data {
		flat[i] = float64(v)
	}

	reshaped := mat.NewDense(channels, spatial, flat)

	var gram mat.Dense
	gram.Mul(reshaped, reshaped.T())

	// Dense stores row-major, so the raw data is already the flattening
	out := make([]float64, channels*channels)
	copy(out, gram.RawMatrix().Data)

	return out, nil
}

// Descriptor turns the named activations of one frame into the frame's
// fixed-length descriptor: one Gram vector per configured layer,
// concatenated in layer order.
func Descriptor(acts map[string]Activation, layers []LayerSpec) ([]float64, error) {
	if len(layers) == 0 {
		return nil, model.ConfigErrorf("no extractor layers configured")
	}

	var descriptor []float64
	for _, layer := range layers {
		act, ok := acts[layer.Name]
		if !ok {
			return nil, model.ConfigErrorf("extractor produced no activation for layer %q", layer.Name)
		}

		gram, err := Gram(act)
		if err != nil {
			return nil, err
		}

		descriptor = append(descriptor, gram...)
	}

	return descriptor, nil
}
