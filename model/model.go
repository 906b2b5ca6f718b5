package model

import (
	"errors"
	"fmt"
	"runtime/debug"

	goxerrors "github.com/mdobak/go-xerrors"
)

// Error taxonomy sentinels. Check with errors.Is.
var (
	// ErrConfig covers bad or missing configuration: unknown dataset,
	// unknown regressor or pooling method, invalid layer specification.
	// Fatal, no retry.
	ErrConfig = errors.New("configuration error")

	// ErrDataShape covers data that does not have the shape the pipeline
	// requires: empty frame sequences, mismatched descriptor lengths,
	// activation tensors of unexpected rank. Fatal for the video at hand.
	ErrDataShape = errors.New("data shape error")
)

// ConfigErrorf builds a stack-carrying error matching ErrConfig.
func ConfigErrorf(format string, args ...interface{}) error {
	return goxerrors.New(fmt.Sprintf(format, args...), ErrConfig)
}

// DataShapeErrorf builds a stack-carrying error matching ErrDataShape.
func DataShapeErrorf(format string, args ...interface{}) error {
	return goxerrors.New(fmt.Sprintf(format, args...), ErrDataShape)
}

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Video is one entry of a VQA dataset: a decodable file plus its
// human-rated quality score. Group carries the pristine-source identity
// used by the grouped splitter; -1 when the dataset has no grouping.
type Video struct {
	ID    string  `json:"id"`
	Path  string  `json:"path"`
	Score float64 `json:"score"`
	Group int     `json:"group"`
}

// FeatureSet is the pooled per-video feature matrix of one dataset run,
// cached between extraction and regression.
type FeatureSet struct {
	Dataset       string      `json:"dataset"`
	Model         string      `json:"model"`
	Pooling       string      `json:"pooling"`
	DescriptorLen int         `json:"descriptorLen"`
	X             [][]float64 `json:"features"`
	Y             []float64   `json:"scores"`
	Groups        []int       `json:"groups"`
	Timestamp     int64       `json:"timestamp"`
}

// FoldRecord is the outcome of a single cross-validation fold.
type FoldRecord struct {
	RunID      string  `json:"runId"`
	Fold       int     `json:"fold"`
	SROCC      float64 `json:"srocc"`
	SROCCPval  float64 `json:"sroccPval"`
	PLCC       float64 `json:"plcc"`
	TestGroups []int   `json:"testGroups,omitempty"`
	Regressor  string  `json:"regressor"`
	Degenerate bool    `json:"degenerate"`
	Timestamp  int64   `json:"timestamp"`
}

// EvaluationSummary aggregates the per-fold correlation sequences of a
// whole cross-validation run. The full sequences are kept on purpose:
// fold variance is itself diagnostic.
type EvaluationSummary struct {
	RunID          string    `json:"runId"`
	Dataset        string    `json:"dataset"`
	Regressor      string    `json:"regressor"`
	Pooling        string    `json:"pooling"`
	SROCC          []float64 `json:"srocc"`
	SROCCPval      []float64 `json:"sroccPval"`
	PLCC           []float64 `json:"plcc"`
	MeanAbsSROCC   float64   `json:"meanAbsSrocc"`
	MedianAbsSROCC float64   `json:"medianAbsSrocc"`
	MeanAbsPLCC    float64   `json:"meanAbsPlcc"`
	MedianAbsPLCC  float64   `json:"medianAbsPlcc"`
	// DegenerateFolds counts folds whose correlations came out undefined
	// (NaN); those folds are excluded from the mean/median aggregates.
	DegenerateFolds int   `json:"degenerateFolds"`
	SkippedVideos   int   `json:"skippedVideos"`
	Timestamp       int64 `json:"timestamp"`
}

type ExtractionStats struct {
	RunID     string  `json:"runId"`
	Dataset   string  `json:"dataset"`
	Videos    int     `json:"videos"`
	Skipped   int     `json:"skipped"`
	Frames    int     `json:"frames"`
	Uptime    int64   `json:"uptime"`
	AvgPerVid float64 `json:"avgPerVideo"`
	Timestamp int64   `json:"timestamp"`
}
