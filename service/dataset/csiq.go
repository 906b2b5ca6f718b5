package dataset

import (
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
)

// CSIQ VQA: 12 pristine sources with 18 distorted variants each, so the
// grouped strategy applies just like LIVE, with a different group size.
const (
	csiqGroupSize     = 18
	csiqTrainFraction = 0.8
	csiqSplits        = 50
	csiqFrameHeight   = 480
	csiqFrameWidth    = 832
)

type csiqService struct {
	CfgSvc config.IService
}

func newCsiq(cfgsvc config.IService) IService {
	return &csiqService{
		CfgSvc: cfgsvc,
	}
}

func (svc *csiqService) Name() string {
	return "csiq"
}

func (svc *csiqService) Load() (Info, error) {
	metaFile := filepath.Join(svc.CfgSvc.GetMetadataFolder(), "csiq_video_quality_data.txt")

	lines, err := readLines(metaFile)
	if err != nil {
		return Info{}, xerrors.Errorf("reading csiq metadata: %w", err)
	}

	var videos []model.Video
	for i, line := range lines {
		// first line holds column titles
		if i == 0 {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return Info{}, model.DataShapeErrorf("csiq metadata row %d: expected name and dmos, got %q", i, line)
		}

		score, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Info{}, model.DataShapeErrorf("csiq metadata row %d: %v", i, err)
		}

		videos = append(videos, model.Video{
			ID:    fields[0],
			Path:  filepath.Join(svc.CfgSvc.GetDatasetRootFolder(), fields[0]),
			Score: score,
			Group: (i - 1) / csiqGroupSize,
		})
	}

	return Info{
		Name:   svc.Name(),
		Videos: videos,
		Split: Split{
			Kind:          SplitGrouped,
			GroupSize:     csiqGroupSize,
			TrainFraction: csiqTrainFraction,
			Splits:        csiqSplits,
		},
		FrameHeight: csiqFrameHeight,
		FrameWidth:  csiqFrameWidth,
	}, nil
}
