package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
)

// KonVid-1k: 1200 in-the-wild mp4 clips with MOS scores and no shared
// pristine sources, so plain repeated k-fold applies.
const (
	konvidFolds   = 5
	konvidRepeats = 10
)

type konvidService struct {
	CfgSvc config.IService
}

func newKonvid(cfgsvc config.IService) IService {
	return &konvidService{
		CfgSvc: cfgsvc,
	}
}

func (svc *konvidService) Name() string {
	return "konvid1k"
}

func (svc *konvidService) Load() (Info, error) {
	metaFile := filepath.Join(svc.CfgSvc.GetMetadataFolder(), "KoNViD_1k_mos.csv")

	f, err := os.Open(metaFile)
	if err != nil {
		return Info{}, xerrors.Errorf("opening konvid metadata: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Info{}, xerrors.Errorf("reading konvid metadata: %w", err)
	}

	var videos []model.Video
	for i, row := range rows {
		// header row: flickr_id, mos
		if i == 0 {
			continue
		}

		if len(row) < 2 {
			return Info{}, model.DataShapeErrorf("konvid metadata row %d: expected id and mos, got %v", i, row)
		}

		score, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return Info{}, model.DataShapeErrorf("konvid metadata row %d: %v", i, err)
		}

		name := fmt.Sprintf("%s.mp4", row[0])
		videos = append(videos, model.Video{
			ID:    name,
			Path:  filepath.Join(svc.CfgSvc.GetDatasetRootFolder(), name),
			Score: score,
			Group: -1,
		})
	}

	return Info{
		Name:   svc.Name(),
		Videos: videos,
		Split: Split{
			Kind:    SplitKFold,
			Folds:   konvidFolds,
			Repeats: konvidRepeats,
		},
	}, nil
}
