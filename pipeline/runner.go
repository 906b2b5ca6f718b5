package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
	"github.com/khaledhikmat/vqa-go/service/data"
	"github.com/khaledhikmat/vqa-go/service/dataset"
	"github.com/khaledhikmat/vqa-go/service/lgr"
)

// Runner walks a dataset video by video and assembles the pooled
// feature matrix. Corrupt videos follow an explicit policy: skip and
// continue (dropping the video and its score together) or abort the run.
// Configuration errors always abort; a bad layer set cannot be skipped
// around.
type Runner struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	Source     DescriptorSource
	DiffSource DescriptorSource
}

func NewRunner(cfgsvc config.IService, datasvc data.IService, source, diffSource DescriptorSource) *Runner {
	return &Runner{
		CfgSvc:     cfgsvc,
		DataSvc:    datasvc,
		Source:     source,
		DiffSource: diffSource,
	}
}

// DatasetMatrix extracts and pools descriptors for every video of the
// dataset. The descriptor length is pinned by the first video; any later
// mismatch is a data shape error caught here, before regression.
func (r *Runner) DatasetMatrix(ctx context.Context, info dataset.Info) (model.FeatureSet, model.ExtractionStats, error) {
	runID := uuid.NewString()
	pooling := r.CfgSvc.GetPoolingMethod()
	skip := r.CfgSvc.GetSkipCorruptVideos()
	startTime := time.Now().Unix()

	lgr.Logger.Info("extraction starting",
		slog.String("runId", runID),
		slog.String("dataset", info.Name),
		slog.Int("videos", len(info.Videos)),
		slog.String("pooling", pooling),
		slog.Bool("skipCorrupt", skip),
	)

	features := model.FeatureSet{
		Dataset: info.Name,
		Model:   r.CfgSvc.GetModelName(),
		Pooling: pooling,
	}
	stats := model.ExtractionStats{
		RunID:   runID,
		Dataset: info.Name,
	}

	frameTotal := 0
	for _, video := range info.Videos {
		if err := ctx.Err(); err != nil {
			return features, stats, err
		}

		descriptor, frames, err := r.videoDescriptor(video, pooling)
		if err != nil {
			if !skip || errors.Is(err, model.ErrConfig) {
				return features, stats, xerrors.Errorf("video %s: %w", video.ID, err)
			}
			lgr.Logger.Warn("skipping corrupt video",
				slog.String("runId", runID),
				slog.String("video", video.ID),
				slog.Any("error", err),
			)
			r.procError(model.GenError("extraction-runner", err,
				map[string]interface{}{"runId": runID, "video": video.ID},
				"skipping corrupt video %s", video.ID))
			stats.Skipped++
			continue
		}

		if features.DescriptorLen == 0 {
			features.DescriptorLen = len(descriptor)
		} else if len(descriptor) != features.DescriptorLen {
			return features, stats, model.DataShapeErrorf(
				"video %s descriptor length %d does not match run length %d",
				video.ID, len(descriptor), features.DescriptorLen)
		}

		features.X = append(features.X, descriptor)
		features.Y = append(features.Y, video.Score)
		features.Groups = append(features.Groups, video.Group)
		frameTotal += frames
	}

	if len(features.X) == 0 {
		return features, stats, model.DataShapeErrorf("no usable videos in dataset %s", info.Name)
	}

	stats.Videos = len(features.X)
	stats.Frames = frameTotal
	stats.Uptime = time.Now().Unix() - startTime
	stats.AvgPerVid = float64(stats.Uptime) / float64(stats.Videos)

	lgr.Logger.Info("extraction finished",
		slog.String("runId", runID),
		slog.Int("videos", stats.Videos),
		slog.Int("skipped", stats.Skipped),
		slog.Int("descriptorLen", features.DescriptorLen),
	)

	return features, stats, nil
}

// procError persists one skip-worthy error so a run's corrupt videos
// can be audited after the fact. Persistence failures are logged, never
// escalated; losing the record must not fail the run.
func (r *Runner) procError(err model.CustomError) {
	if persistErr := r.DataSvc.NewError(err); persistErr != nil {
		lgr.Logger.Error("error persisting skip record", slog.Any("error", persistErr))
	}
}

func (r *Runner) videoDescriptor(video model.Video, pooling string) ([]float64, int, error) {
	descriptor, frames, err := r.pooledDescriptor(r.Source, video, pooling)
	if err != nil {
		return nil, frames, err
	}

	// Frame-difference features ride on a second single-pass decode:
	// frame sequences are not restartable once consumed.
	if r.DiffSource != nil {
		diff, diffFrames, err := r.pooledDescriptor(r.DiffSource, video, pooling)
		if err != nil {
			return nil, frames, err
		}
		descriptor = append(descriptor, diff...)
		frames += diffFrames
	}

	return descriptor, frames, nil
}

func (r *Runner) pooledDescriptor(source DescriptorSource, video model.Video, pooling string) ([]float64, int, error) {
	seq, err := source.Open(video)
	if err != nil {
		return nil, 0, err
	}
	defer seq.Close()

	counted := &countingSeq{inner: seq}
	descriptor, err := Pool(counted, pooling)
	if err != nil {
		return nil, counted.n, err
	}

	return descriptor, counted.n, nil
}

type countingSeq struct {
	inner DescriptorSeq
	n     int
}

func (c *countingSeq) Next() ([]float64, bool) {
	item, ok := c.inner.Next()
	if ok {
		c.n++
	}
	return item, ok
}

func (c *countingSeq) Err() error {
	return c.inner.Err()
}

func (c *countingSeq) Close() error {
	return c.inner.Close()
}
