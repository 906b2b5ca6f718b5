package data

import "github.com/khaledhikmat/vqa-go/model"

type IService interface {
	// Feature cache: extraction is the expensive half of a run, so the
	// pooled matrix persists and the regress mode can reuse it.
	SaveFeatures(features model.FeatureSet) error
	RetrieveFeatures(dataset string) (model.FeatureSet, error)

	NewError(err interface{}) error
	NewEvaluationSummary(summary model.EvaluationSummary) error
	NewExtractionStats(stats model.ExtractionStats) error
}
