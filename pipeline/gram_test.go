package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vqa-go/model"
)

func TestGram(t *testing.T) {
	// 2 channels over a 1x3 spatial extent:
	// channel 0 = [1 2 3], channel 1 = [0 1 0]
	act := Activation{
		Name: "conv1_1",
		Dims: []int{1, 2, 1, 3},
		Data: []float32{1, 2, 3, 0, 1, 0},
	}

	gram, err := Gram(act)
	require.NoError(t, err)
	require.Len(t, gram, 4)

	// G = A*Aᵀ: [14 2; 2 1] flattened row-major
	require.InDelta(t, 14, gram[0], 1e-12)
	require.InDelta(t, 2, gram[1], 1e-12)
	require.InDelta(t, 2, gram[2], 1e-12)
	require.InDelta(t, 1, gram[3], 1e-12)
}

func TestGramSymmetry(t *testing.T) {
	channels, height, width := 4, 3, 5
	data := make([]float32, channels*height*width)
	for i := range data {
		data[i] = float32(i%7) - 3
	}

	gram, err := Gram(Activation{
		Name: "conv2_1",
		Dims: []int{1, channels, height, width},
		Data: data,
	})
	require.NoError(t, err)
	require.Len(t, gram, channels*channels)

	for i := 0; i < channels; i++ {
		for j := 0; j < channels; j++ {
			require.InDelta(t, gram[j*channels+i], gram[i*channels+j], 1e-9)
		}
	}
}

func TestGramRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		act  Activation
	}{
		{"rank 3", Activation{Dims: []int{2, 1, 3}, Data: make([]float32, 6)}},
		{"batch 2", Activation{Dims: []int{2, 1, 1, 3}, Data: make([]float32, 6)}},
		{"zero channels", Activation{Dims: []int{1, 0, 1, 3}, Data: nil}},
		{"zero spatial", Activation{Dims: []int{1, 2, 0, 3}, Data: nil}},
		{"data too short", Activation{Dims: []int{1, 2, 1, 3}, Data: make([]float32, 5)}},
	}

	for _, tc := range cases {
		_, err := Gram(tc.act)
		require.Error(t, err, tc.name)
		require.True(t, errors.Is(err, model.ErrDataShape), tc.name)
	}
}

func TestDescriptorConcatenatesInLayerOrder(t *testing.T) {
	acts := map[string]Activation{
		"conv1_1": {Name: "conv1_1", Dims: []int{1, 1, 1, 2}, Data: []float32{1, 1}},
		"conv2_1": {Name: "conv2_1", Dims: []int{1, 1, 1, 2}, Data: []float32{2, 0}},
	}
	layers := []LayerSpec{
		{Key: "conv2_1", Name: "conv2_1"},
		{Key: "conv1_1", Name: "conv1_1"},
	}

	descriptor, err := Descriptor(acts, layers)
	require.NoError(t, err)

	// conv2_1 gram [4] comes first because the layer list says so
	require.Equal(t, []float64{4, 2}, descriptor)
}

func TestDescriptorMissingLayer(t *testing.T) {
	acts := map[string]Activation{
		"conv1_1": {Name: "conv1_1", Dims: []int{1, 1, 1, 1}, Data: []float32{1}},
	}

	_, err := Descriptor(acts, []LayerSpec{{Key: "conv5_1", Name: "conv5_1"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrConfig))

	_, err = Descriptor(acts, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrConfig))
}
