package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
)

// LIVE VQA: 10 pristine sources, 15 distorted variants each, 150 raw YUV
// sequences of 768x432. Videos derived from the same source must never be
// split across train and test, hence the grouped strategy.
const (
	liveGroupSize     = 15
	liveTrainFraction = 0.8
	liveSplits        = 50
	liveFrameHeight   = 432
	liveFrameWidth    = 768
)

type liveService struct {
	CfgSvc config.IService
}

func newLive(cfgsvc config.IService) IService {
	return &liveService{
		CfgSvc: cfgsvc,
	}
}

func (svc *liveService) Name() string {
	return "live"
}

func (svc *liveService) Load() (Info, error) {
	seqFile := filepath.Join(svc.CfgSvc.GetMetadataFolder(), "live_video_quality_seqs.txt")
	dmosFile := filepath.Join(svc.CfgSvc.GetMetadataFolder(), "live_video_quality_data.txt")

	names, err := readLines(seqFile)
	if err != nil {
		return Info{}, xerrors.Errorf("reading live sequence list: %w", err)
	}

	dmosLines, err := readLines(dmosFile)
	if err != nil {
		return Info{}, xerrors.Errorf("reading live dmos file: %w", err)
	}

	if len(names) != len(dmosLines) {
		return Info{}, model.DataShapeErrorf("live metadata mismatch: %d sequences vs %d dmos rows", len(names), len(dmosLines))
	}

	videos := make([]model.Video, 0, len(names))
	for i, name := range names {
		// dmos rows are tab separated; the first column is the score
		fields := strings.Split(dmosLines[i], "\t")
		score, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return Info{}, model.DataShapeErrorf("live dmos row %d: %v", i, err)
		}

		videos = append(videos, model.Video{
			ID:    name,
			Path:  filepath.Join(svc.CfgSvc.GetDatasetRootFolder(), name),
			Score: score,
			Group: i / liveGroupSize,
		})
	}

	return Info{
		Name:   svc.Name(),
		Videos: videos,
		Split: Split{
			Kind:          SplitGrouped,
			GroupSize:     liveGroupSize,
			TrainFraction: liveTrainFraction,
			Splits:        liveSplits,
		},
		FrameHeight: liveFrameHeight,
		FrameWidth:  liveFrameWidth,
	}, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	return lines, nil
}
