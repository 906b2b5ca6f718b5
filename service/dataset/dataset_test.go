package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vqa-go/model"
)

type testConfig struct {
	dataset string
	root    string
	meta    string
}

func (c *testConfig) GetDatasetName() string       { return c.dataset }
func (c *testConfig) GetDatasetRootFolder() string { return c.root }
func (c *testConfig) GetMetadataFolder() string    { return c.meta }
func (c *testConfig) GetModelName() string         { return "vgg19" }
func (c *testConfig) GetModelPath() string         { return "" }
func (c *testConfig) GetDevice() string            { return "cpu" }
func (c *testConfig) GetFrameColorMode() string    { return "rgb" }
func (c *testConfig) GetFrameDiff() bool           { return false }
func (c *testConfig) GetFrameStride() int          { return 1 }
func (c *testConfig) GetPoolingMethod() string     { return "max" }
func (c *testConfig) GetRegressorName() string     { return "svr" }
func (c *testConfig) GetSeed() int64               { return 1 }
func (c *testConfig) GetSkipCorruptVideos() bool   { return false }
func (c *testConfig) GetSettingsFolder() string    { return "." }
func (c *testConfig) GetArtifactsFolder() string   { return "." }
func (c *testConfig) GetFoldLogFile() string       { return "folds.log" }
func (c *testConfig) GetPlotPerFold() bool         { return false }

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestNewUnknownDataset(t *testing.T) {
	_, err := New(&testConfig{dataset: "vqeg"})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrConfig))
}

func TestLiveLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "live_video_quality_seqs.txt",
		"pa1_25fps.yuv\npa2_25fps.yuv\npa3_25fps.yuv\n")
	writeFile(t, dir, "live_video_quality_data.txt",
		"42.5\t0.1\n61.0\t0.2\n55.25\t0.3\n")

	svc, err := New(&testConfig{dataset: "live", root: "/data/live", meta: dir})
	require.NoError(t, err)
	require.Equal(t, "live", svc.Name())

	info, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, info.Videos, 3)

	// scores come from the first tab-separated column, order preserved
	require.Equal(t, "pa1_25fps.yuv", info.Videos[0].ID)
	require.Equal(t, filepath.Join("/data/live", "pa1_25fps.yuv"), info.Videos[0].Path)
	require.InDelta(t, 42.5, info.Videos[0].Score, 1e-12)
	require.InDelta(t, 55.25, info.Videos[2].Score, 1e-12)

	// consecutive runs of 15 share a pristine source
	require.Equal(t, 0, info.Videos[0].Group)
	require.Equal(t, 0, info.Videos[2].Group)

	require.Equal(t, SplitGrouped, info.Split.Kind)
	require.Equal(t, 50, info.Split.Splits)
	require.InDelta(t, 0.8, info.Split.TrainFraction, 1e-12)
	require.Equal(t, 432, info.FrameHeight)
	require.Equal(t, 768, info.FrameWidth)
}

func TestLiveLoadGroupBoundaries(t *testing.T) {
	dir := t.TempDir()

	var seqs, dmos string
	for i := 0; i < 31; i++ {
		seqs += "v.yuv\n"
		dmos += "50.0\n"
	}
	writeFile(t, dir, "live_video_quality_seqs.txt", seqs)
	writeFile(t, dir, "live_video_quality_data.txt", dmos)

	svc, _ := New(&testConfig{dataset: "live", meta: dir})
	info, err := svc.Load()
	require.NoError(t, err)

	require.Equal(t, 0, info.Videos[14].Group)
	require.Equal(t, 1, info.Videos[15].Group)
	require.Equal(t, 2, info.Videos[30].Group)
}

func TestLiveLoadMetadataMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "live_video_quality_seqs.txt", "a.yuv\nb.yuv\n")
	writeFile(t, dir, "live_video_quality_data.txt", "42.5\n")

	svc, _ := New(&testConfig{dataset: "live", meta: dir})
	_, err := svc.Load()
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrDataShape))
}

func TestLiveLoadMissingMetadata(t *testing.T) {
	svc, _ := New(&testConfig{dataset: "live", meta: t.TempDir()})
	_, err := svc.Load()
	require.Error(t, err)
}

func TestCsiqLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "csiq_video_quality_data.txt",
		"filename dmos\nBQMall_832x480_H264_1.yuv 31.2\nBQMall_832x480_H264_2.yuv 45.8\n")

	svc, err := New(&testConfig{dataset: "csiq", root: "/data/csiq", meta: dir})
	require.NoError(t, err)

	info, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, info.Videos, 2)
	require.InDelta(t, 31.2, info.Videos[0].Score, 1e-12)
	require.Equal(t, 0, info.Videos[0].Group)
	require.Equal(t, SplitGrouped, info.Split.Kind)
	require.Equal(t, 18, info.Split.GroupSize)
	require.Equal(t, 480, info.FrameHeight)
}

func TestKonvidLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "KoNViD_1k_mos.csv",
		"flickr_id,mos\n2999049224,2.92\n3937801068,3.31\n")

	svc, err := New(&testConfig{dataset: "konvid1k", root: "/data/konvid", meta: dir})
	require.NoError(t, err)

	info, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, info.Videos, 2)

	require.Equal(t, "2999049224.mp4", info.Videos[0].ID)
	require.InDelta(t, 2.92, info.Videos[0].Score, 1e-12)

	// in-the-wild clips have no pristine-source grouping
	require.Equal(t, -1, info.Videos[0].Group)
	require.Equal(t, SplitKFold, info.Split.Kind)
	require.Equal(t, 5, info.Split.Folds)
	require.Equal(t, 10, info.Split.Repeats)

	// mp4 carries its own dimensions
	require.Equal(t, 0, info.FrameHeight)
}

func TestKonvidLoadBadScore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "KoNViD_1k_mos.csv", "flickr_id,mos\n2999049224,notanumber\n")

	svc, _ := New(&testConfig{dataset: "konvid1k", meta: dir})
	_, err := svc.Load()
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrDataShape))
}

func TestInfoAccessors(t *testing.T) {
	info := Info{
		Videos: []model.Video{
			{Score: 10, Group: 0},
			{Score: 20, Group: 0},
			{Score: 30, Group: 1},
		},
	}

	require.Equal(t, []int{0, 0, 1}, info.Groups())
	require.Equal(t, []float64{10, 20, 30}, info.Scores())
}
