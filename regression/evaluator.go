package regression

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/natefinch/lumberjack"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
	"github.com/khaledhikmat/vqa-go/service/dataset"
	"github.com/khaledhikmat/vqa-go/service/lgr"
	"github.com/khaledhikmat/vqa-go/service/storage"
)

// Evaluator runs the cross-validated regression over a pooled feature
// matrix and aggregates per-fold correlation statistics. Every fold goes
// through the same procedure regardless of the split strategy or the
// regressor variant: scale features and scores on the training side
// only, fit, predict, invert the score scaling, correlate.
type Evaluator struct {
	CfgSvc     config.IService
	StorageSvc storage.IService

	foldLog *lumberjack.Logger
}

func NewEvaluator(cfgsvc config.IService, storagesvc storage.IService) *Evaluator {
	return &Evaluator{
		CfgSvc:     cfgsvc,
		StorageSvc: storagesvc,
		foldLog: &lumberjack.Logger{
			Filename:   cfgsvc.GetFoldLogFile(),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7,    // days
			Compress:   true, // compress old logs
		},
	}
}

func (e *Evaluator) Evaluate(runID string, features model.FeatureSet, split dataset.Split) (model.EvaluationSummary, error) {
	seed := e.CfgSvc.GetSeed()
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var folds []Fold
	var err error
	switch split.Kind {
	case dataset.SplitGrouped:
		folds, err = GroupShuffleSplit(features.Groups, split.Splits, split.TrainFraction, rng)
	case dataset.SplitKFold:
		folds, err = RepeatedKFold(len(features.X), split.Folds, split.Repeats, rng)
	default:
		err = model.ConfigErrorf("unknown split strategy %q", split.Kind)
	}
	if err != nil {
		return model.EvaluationSummary{}, err
	}

	regressorName := e.CfgSvc.GetRegressorName()

	summary := model.EvaluationSummary{
		RunID:     runID,
		Dataset:   features.Dataset,
		Regressor: regressorName,
		Pooling:   features.Pooling,
	}

	for i, fold := range folds {
		record, yTest, yPred, err := e.evalFold(runID, i+1, fold, features, regressorName, rng)
		if err != nil {
			if errors.Is(err, model.ErrConfig) {
				return summary, err
			}
			// a failed fold is flagged, not allowed to abort the others
			lgr.Logger.Warn("fold evaluation failed",
				slog.String("runId", runID),
				slog.Int("fold", i+1),
				slog.Any("error", err),
			)
			record = model.FoldRecord{
				RunID:      runID,
				Fold:       i + 1,
				SROCC:      math.NaN(),
				SROCCPval:  math.NaN(),
				PLCC:       math.NaN(),
				TestGroups: fold.TestGroups,
				Regressor:  regressorName,
				Degenerate: true,
			}
		}

		summary.SROCC = append(summary.SROCC, record.SROCC)
		summary.SROCCPval = append(summary.SROCCPval, record.SROCCPval)
		summary.PLCC = append(summary.PLCC, record.PLCC)
		if record.Degenerate {
			summary.DegenerateFolds++
		}

		e.logFold(record)

		if e.CfgSvc.GetPlotPerFold() && !record.Degenerate {
			e.plotFold(len(summary.SROCC), yTest, yPred, record.SROCC)
		}

		lgr.Logger.Info("fold evaluated",
			slog.String("runId", runID),
			slog.Int("fold", i+1),
			slog.Float64("srocc", record.SROCC),
			slog.Float64("plcc", record.PLCC),
			slog.Any("testGroups", record.TestGroups),
		)
	}

	summary.MeanAbsSROCC = meanAbs(summary.SROCC)
	summary.MedianAbsSROCC = medianAbs(summary.SROCC)
	summary.MeanAbsPLCC = meanAbs(summary.PLCC)
	summary.MedianAbsPLCC = medianAbs(summary.PLCC)

	return summary, nil
}

func (e *Evaluator) evalFold(runID string, foldNum int, fold Fold, features model.FeatureSet, regressorName string, rng *rand.Rand) (model.FoldRecord, []float64, []float64, error) {
	XTrain, yTrain := take(features.X, fold.Train), takeScores(features.Y, fold.Train)
	XTest, yTest := take(features.X, fold.Test), takeScores(features.Y, fold.Test)

	// feature scaling fitted on the training side only
	var scX StandardScaler
	XTrainStd, err := scX.FitTransform(XTrain)
	if err != nil {
		return model.FoldRecord{}, nil, nil, err
	}
	XTestStd := scX.Transform(XTest)

	var scY ScoreScaler
	yTrainStd, err := scY.FitTransform(yTrain)
	if err != nil {
		return model.FoldRecord{}, nil, nil, err
	}

	regressor, err := NewRegressor(regressorName, rng)
	if err != nil {
		return model.FoldRecord{}, nil, nil, err
	}

	if err := regressor.Fit(XTrainStd, yTrainStd); err != nil {
		return model.FoldRecord{}, nil, nil, err
	}

	predStd, err := regressor.Predict(XTestStd)
	if err != nil {
		return model.FoldRecord{}, nil, nil, err
	}
	yPred := scY.InverseTransform(predStd)

	srocc, pval := Spearman(yTest, yPred)
	plcc := Pearson(yTest, yPred)

	record := model.FoldRecord{
		RunID:      runID,
		Fold:       foldNum,
		SROCC:      srocc,
		SROCCPval:  pval,
		PLCC:       plcc,
		TestGroups: fold.TestGroups,
		Regressor:  regressorName,
		Degenerate: math.IsNaN(srocc) || math.IsNaN(plcc),
	}

	return record, yTest, yPred, nil
}

func (e *Evaluator) logFold(record model.FoldRecord) {
	record.Timestamp = time.Now().Unix()

	data, err := json.Marshal(record)
	if err != nil {
		lgr.Logger.Error("error marshaling fold record", slog.Any("error", err))
		return
	}

	if _, err := e.foldLog.Write(append(data, '\n')); err != nil {
		lgr.Logger.Error("error writing fold record", slog.Any("error", err))
	}
}

func (e *Evaluator) plotFold(counter int, yTest, yPred []float64, srocc float64) {
	data, err := scatterPNG(yTest, yPred, srocc)
	if err != nil {
		lgr.Logger.Warn("error rendering fold plot", slog.Any("error", err))
		return
	}

	if _, err := e.StorageSvc.SaveArtifact(fmt.Sprintf("%d.png", counter), data); err != nil {
		lgr.Logger.Warn("error storing fold plot", slog.Any("error", err))
	}
}

func take(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func takeScores(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
