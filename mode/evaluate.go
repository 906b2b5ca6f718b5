package mode

import (
	"context"
	"log/slog"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vqa-go/pipeline"
	"github.com/khaledhikmat/vqa-go/regression"
	"github.com/khaledhikmat/vqa-go/service/dataset"
	"github.com/khaledhikmat/vqa-go/service/lgr"
)

// Evaluate runs the full pipeline: decode every dataset video, extract
// and pool style descriptors, then cross-validate the regressor. Pooled
// features are cached so the regress mode can rerun regression without
// re-decoding anything.
func Evaluate(canxCtx context.Context, svcs Services) error {
	datasetSvc, err := dataset.New(svcs.CfgSvc)
	if err != nil {
		return err
	}

	info, err := datasetSvc.Load()
	if err != nil {
		return xerrors.Errorf("loading dataset %s: %w", datasetSvc.Name(), err)
	}

	variant, err := pipeline.VariantByName(svcs.CfgSvc.GetModelName())
	if err != nil {
		return err
	}

	extractor, err := pipeline.NewExtractor(svcs.CfgSvc.GetModelPath(), svcs.CfgSvc.GetDevice(), variant, false)
	if err != nil {
		return err
	}
	defer extractor.Close()

	framerCfg := pipeline.FramerConfig{
		ColorMode: svcs.CfgSvc.GetFrameColorMode(),
		Height:    info.FrameHeight,
		Width:     info.FrameWidth,
		Stride:    svcs.CfgSvc.GetFrameStride(),
	}
	source := pipeline.NewExtractSource(extractor, framerCfg)

	// Frame-difference features use their own layer set and a second
	// extractor over the same weights
	var diffSource pipeline.DescriptorSource
	if svcs.CfgSvc.GetFrameDiff() {
		diffExtractor, err := pipeline.NewExtractor(svcs.CfgSvc.GetModelPath(), svcs.CfgSvc.GetDevice(), variant, true)
		if err != nil {
			return err
		}
		defer diffExtractor.Close()

		diffCfg := framerCfg
		diffCfg.FrameDiff = true
		diffSource = pipeline.NewExtractSource(diffExtractor, diffCfg)
	}

	runner := pipeline.NewRunner(svcs.CfgSvc, svcs.DataSvc, source, diffSource)
	features, stats, err := runner.DatasetMatrix(canxCtx, info)
	if err != nil {
		return err
	}

	if err := svcs.DataSvc.SaveFeatures(features); err != nil {
		lgr.Logger.Error("error caching features", slog.Any("error", err))
	}
	if err := svcs.DataSvc.NewExtractionStats(stats); err != nil {
		lgr.Logger.Error("error storing extraction stats", slog.Any("error", err))
	}

	evaluator := regression.NewEvaluator(svcs.CfgSvc, svcs.StorageSvc)
	summary, err := evaluator.Evaluate(stats.RunID, features, info.Split)
	if err != nil {
		return err
	}
	summary.SkippedVideos = stats.Skipped

	if err := svcs.DataSvc.NewEvaluationSummary(summary); err != nil {
		lgr.Logger.Error("error storing evaluation summary", slog.Any("error", err))
	}

	printSummary(summary)
	return nil
}
