package pipeline

import (
	"github.com/khaledhikmat/vqa-go/model"
)

// LayerSpec binds a network-internal layer key to the semantic name used
// in descriptors. The ordered list of specs defines the column semantics
// of the feature matrix, so the order is fixed at configuration time and
// never changes mid-run.
type LayerSpec struct {
	Key  string
	Name string
}

// Variant describes one supported extractor network: its expected input
// geometry and the ordered layer sets for frame features and for
// consecutive-frame-difference features.
type Variant struct {
	Name       string
	FrameSize  int
	CenterCrop int
	Layers     []LayerSpec
	DiffLayers []LayerSpec
}

var variants = map[string]Variant{
	"vgg19": {
		Name:       "vgg19",
		FrameSize:  255,
		CenterCrop: 224,
		Layers: []LayerSpec{
			{Key: "conv1_1", Name: "conv1_1"},
			{Key: "conv2_1", Name: "conv2_1"},
		},
		DiffLayers: []LayerSpec{
			{Key: "conv4_2", Name: "conv4_2"},
		},
	},
	"inceptionv3": {
		Name:       "inceptionv3",
		FrameSize:  338,
		CenterCrop: 299,
		Layers: []LayerSpec{
			{Key: "mixed_5b", Name: "mixed_1"},
			{Key: "avg_pool", Name: "avgpool"},
		},
		DiffLayers: []LayerSpec{
			{Key: "avg_pool", Name: "avgpool"},
		},
	},
	"efficientnet": {
		Name:       "efficientnet",
		FrameSize:  423,
		CenterCrop: 380,
		Layers: []LayerSpec{
			{Key: "blocks_3_3_add", Name: "blocks_3_3_add"},
			{Key: "blocks_4_4_add", Name: "blocks_4_4_add"},
			{Key: "blocks_5_5_add", Name: "blocks_5_5_add"},
			{Key: "avg_pool", Name: "avgpool"},
		},
		DiffLayers: []LayerSpec{
			{Key: "avg_pool", Name: "avgpool"},
		},
	},
}

// VariantByName resolves a supported extractor variant. Unknown model
// names are a configuration error.
func VariantByName(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, model.ConfigErrorf("unknown extractor model %q", name)
	}
	return v, nil
}
