package mode

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vqa-go/regression"
	"github.com/khaledhikmat/vqa-go/service/dataset"
	"github.com/khaledhikmat/vqa-go/service/lgr"
)

// Regress reruns the cross-validated regression over previously cached
// features, skipping decode and extraction entirely. Useful when
// comparing regressors or split seeds on the same descriptors.
func Regress(canxCtx context.Context, svcs Services) error {
	if err := canxCtx.Err(); err != nil {
		return err
	}

	datasetSvc, err := dataset.New(svcs.CfgSvc)
	if err != nil {
		return err
	}

	info, err := datasetSvc.Load()
	if err != nil {
		return xerrors.Errorf("loading dataset %s: %w", datasetSvc.Name(), err)
	}

	features, err := svcs.DataSvc.RetrieveFeatures(datasetSvc.Name())
	if err != nil {
		return xerrors.Errorf("regress mode needs cached features; run evaluate first: %w", err)
	}

	runID := uuid.NewString()
	lgr.Logger.Info("regression starting from cached features",
		slog.String("runId", runID),
		slog.String("dataset", features.Dataset),
		slog.Int("videos", len(features.X)),
		slog.Int("descriptorLen", features.DescriptorLen),
	)

	evaluator := regression.NewEvaluator(svcs.CfgSvc, svcs.StorageSvc)
	summary, err := evaluator.Evaluate(runID, features, info.Split)
	if err != nil {
		return err
	}

	if err := svcs.DataSvc.NewEvaluationSummary(summary); err != nil {
		lgr.Logger.Error("error storing evaluation summary", slog.Any("error", err))
	}

	printSummary(summary)
	return nil
}
