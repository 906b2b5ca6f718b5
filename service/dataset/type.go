package dataset

import (
	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
)

const (
	SplitGrouped = "grouped"
	SplitKFold   = "kfold"
)

// Split is the cross-validation strategy a dataset calls for. Group
// sizes and repeat counts are dataset-specific inputs, not defaults that
// generalize; each adapter supplies its own.
type Split struct {
	Kind string `json:"kind"`

	// Grouped strategy (datasets whose videos derive from a small set of
	// pristine sources)
	GroupSize     int     `json:"groupSize,omitempty"`
	TrainFraction float64 `json:"trainFraction,omitempty"`
	Splits        int     `json:"splits,omitempty"`

	// K-fold strategy (unstructured datasets)
	Folds   int `json:"folds,omitempty"`
	Repeats int `json:"repeats,omitempty"`
}

// Info is everything the pipeline needs to know about a dataset: the
// ordered videos with scores index-for-index, decode parameters for raw
// sequences, and the split strategy.
type Info struct {
	Name   string
	Videos []model.Video
	Split  Split

	// Raw YUV decode dimensions; zero for container formats that carry
	// their own header (mp4).
	FrameHeight int
	FrameWidth  int
}

// Groups returns the per-video group ids in dataset order.
func (i Info) Groups() []int {
	groups := make([]int, len(i.Videos))
	for n, v := range i.Videos {
		groups[n] = v.Group
	}
	return groups
}

// Scores returns the per-video ground-truth scores in dataset order.
func (i Info) Scores() []float64 {
	scores := make([]float64, len(i.Videos))
	for n, v := range i.Videos {
		scores[n] = v.Score
	}
	return scores
}

type IService interface {
	Name() string
	Load() (Info, error)
}

// New resolves a dataset adapter by name. Unknown names are a
// configuration error, surfaced immediately.
func New(cfgsvc config.IService) (IService, error) {
	switch cfgsvc.GetDatasetName() {
	case "live":
		return newLive(cfgsvc), nil
	case "csiq":
		return newCsiq(cfgsvc), nil
	case "konvid1k":
		return newKonvid(cfgsvc), nil
	}

	return nil, model.ConfigErrorf("unknown dataset %q", cfgsvc.GetDatasetName())
}
