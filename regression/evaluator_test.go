package regression

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/dataset"
)

type testConfig struct {
	regressor string
	seed      int64
	foldLog   string
	plot      bool
}

func (c *testConfig) GetDatasetName() string       { return "live" }
func (c *testConfig) GetDatasetRootFolder() string { return "." }
func (c *testConfig) GetMetadataFolder() string    { return "." }
func (c *testConfig) GetModelName() string         { return "vgg19" }
func (c *testConfig) GetModelPath() string         { return "" }
func (c *testConfig) GetDevice() string            { return "cpu" }
func (c *testConfig) GetFrameColorMode() string    { return "rgb" }
func (c *testConfig) GetFrameDiff() bool           { return false }
func (c *testConfig) GetFrameStride() int          { return 1 }
func (c *testConfig) GetPoolingMethod() string     { return "max" }
func (c *testConfig) GetRegressorName() string     { return c.regressor }
func (c *testConfig) GetSeed() int64               { return c.seed }
func (c *testConfig) GetSkipCorruptVideos() bool   { return false }
func (c *testConfig) GetSettingsFolder() string    { return "." }
func (c *testConfig) GetArtifactsFolder() string   { return "." }
func (c *testConfig) GetFoldLogFile() string       { return c.foldLog }
func (c *testConfig) GetPlotPerFold() bool         { return c.plot }

type memoryStorage struct {
	saved map[string][]byte
}

func (s *memoryStorage) SaveArtifact(name string, data []byte) (string, error) {
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[name] = data
	return name, nil
}

// syntheticFeatures builds a grouped feature matrix whose score follows
// the first feature with mild noise, the shape a well-behaved descriptor
// run produces.
func syntheticFeatures(nGroups, groupSize, dim int, rng *rand.Rand) model.FeatureSet {
	features := model.FeatureSet{
		Dataset:       "live",
		Model:         "vgg19",
		Pooling:       "max",
		DescriptorLen: dim,
	}

	for g := 0; g < nGroups; g++ {
		for v := 0; v < groupSize; v++ {
			row := make([]float64, dim)
			for j := range row {
				row[j] = rng.NormFloat64()
			}
			features.X = append(features.X, row)
			features.Y = append(features.Y, 50+20*row[0]+rng.NormFloat64())
			features.Groups = append(features.Groups, g)
		}
	}

	return features
}

func newTestEvaluator(t *testing.T, cfg *testConfig) (*Evaluator, *memoryStorage) {
	t.Helper()
	if cfg.foldLog == "" {
		cfg.foldLog = filepath.Join(t.TempDir(), "folds.log")
	}
	store := &memoryStorage{}
	return NewEvaluator(cfg, store), store
}

func TestEvaluateGroupedSVR(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	features := syntheticFeatures(10, 15, 20, rng)

	evaluator, _ := newTestEvaluator(t, &testConfig{regressor: RegressorSVR, seed: 7})

	summary, err := evaluator.Evaluate("run-1", features, dataset.Split{
		Kind:          dataset.SplitGrouped,
		GroupSize:     15,
		TrainFraction: 0.8,
		Splits:        5,
	})
	require.NoError(t, err)

	require.Equal(t, "run-1", summary.RunID)
	require.Equal(t, RegressorSVR, summary.Regressor)
	require.Len(t, summary.SROCC, 5)
	require.Len(t, summary.SROCCPval, 5)
	require.Len(t, summary.PLCC, 5)
	require.Equal(t, 0, summary.DegenerateFolds)

	// a strong monotone signal must come through every fold
	for i, srocc := range summary.SROCC {
		require.Greater(t, math.Abs(srocc), 0.8, "fold %d", i+1)
		require.Less(t, summary.SROCCPval[i], 0.05, "fold %d", i+1)
	}
	require.Greater(t, summary.MeanAbsSROCC, 0.8)
	require.Greater(t, summary.MedianAbsSROCC, 0.8)
	require.Greater(t, summary.MeanAbsPLCC, 0.8)
}

func TestEvaluateKFold(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	features := syntheticFeatures(1, 50, 10, rng)

	evaluator, _ := newTestEvaluator(t, &testConfig{regressor: RegressorSVR, seed: 3})

	summary, err := evaluator.Evaluate("run-2", features, dataset.Split{
		Kind:    dataset.SplitKFold,
		Folds:   5,
		Repeats: 2,
	})
	require.NoError(t, err)
	require.Len(t, summary.SROCC, 10)
	require.Greater(t, summary.MeanAbsSROCC, 0.7)
}

func TestEvaluateSeedReproducibility(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	features := syntheticFeatures(6, 10, 8, rng)

	split := dataset.Split{Kind: dataset.SplitGrouped, TrainFraction: 0.8, Splits: 3}

	a, _ := newTestEvaluator(t, &testConfig{regressor: RegressorSVR, seed: 99})
	b, _ := newTestEvaluator(t, &testConfig{regressor: RegressorSVR, seed: 99})

	sa, err := a.Evaluate("run-a", features, split)
	require.NoError(t, err)
	sb, err := b.Evaluate("run-b", features, split)
	require.NoError(t, err)

	require.Equal(t, sa.SROCC, sb.SROCC)
	require.Equal(t, sa.PLCC, sb.PLCC)
}

func TestEvaluatePlotsPerFold(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	features := syntheticFeatures(6, 10, 8, rng)

	evaluator, store := newTestEvaluator(t, &testConfig{regressor: RegressorSVR, seed: 7, plot: true})

	_, err := evaluator.Evaluate("run-3", features, dataset.Split{
		Kind:          dataset.SplitGrouped,
		TrainFraction: 0.8,
		Splits:        2,
	})
	require.NoError(t, err)

	// one scatter per non-degenerate fold, numbered from 1
	require.Contains(t, store.saved, "1.png")
	require.Contains(t, store.saved, "2.png")
	require.NotEmpty(t, store.saved["1.png"])
}

func TestEvaluateUnknownSplitKind(t *testing.T) {
	evaluator, _ := newTestEvaluator(t, &testConfig{regressor: RegressorSVR, seed: 1})

	_, err := evaluator.Evaluate("run-4", model.FeatureSet{}, dataset.Split{Kind: "loocv"})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrConfig))
}

func TestEvaluateUnknownRegressorAborts(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	features := syntheticFeatures(4, 5, 4, rng)

	evaluator, _ := newTestEvaluator(t, &testConfig{regressor: "forest", seed: 1})

	_, err := evaluator.Evaluate("run-5", features, dataset.Split{
		Kind:          dataset.SplitGrouped,
		TrainFraction: 0.8,
		Splits:        2,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrConfig))
}

func TestEvaluateDegenerateFoldIsFlaggedNotFatal(t *testing.T) {
	// constant scores make every correlation undefined
	features := model.FeatureSet{
		Dataset:       "live",
		Pooling:       "max",
		DescriptorLen: 2,
	}
	rng := rand.New(rand.NewSource(37))
	for g := 0; g < 4; g++ {
		for v := 0; v < 5; v++ {
			features.X = append(features.X, []float64{rng.NormFloat64(), rng.NormFloat64()})
			features.Y = append(features.Y, 42)
			features.Groups = append(features.Groups, g)
		}
	}

	evaluator, _ := newTestEvaluator(t, &testConfig{regressor: RegressorSVR, seed: 7})

	summary, err := evaluator.Evaluate("run-6", features, dataset.Split{
		Kind:          dataset.SplitGrouped,
		TrainFraction: 0.75,
		Splits:        3,
	})
	require.NoError(t, err)
	require.Equal(t, 3, summary.DegenerateFolds)
	for _, srocc := range summary.SROCC {
		require.True(t, math.IsNaN(srocc))
	}
	require.True(t, math.IsNaN(summary.MeanAbsSROCC))
}
