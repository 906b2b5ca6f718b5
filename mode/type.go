package mode

import (
	"context"
	"fmt"
	"math"

	"github.com/fatih/color"

	"github.com/khaledhikmat/vqa-go/model"
	"github.com/khaledhikmat/vqa-go/service/config"
	"github.com/khaledhikmat/vqa-go/service/data"
	"github.com/khaledhikmat/vqa-go/service/storage"
)

// Services carries the services a mode processor needs. Processors may
// override individual services with different implementations.
type Services struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	StorageSvc storage.IService
}

// Signature of mode processor function
type Processor func(canxCtx context.Context, svcs Services) error

func printSummary(summary model.EvaluationSummary) {
	header := color.New(color.FgCyan, color.Bold)
	value := color.New(color.FgGreen)

	header.Printf("\n%s / %s / %s pooling, %d folds\n",
		summary.Dataset, summary.Regressor, summary.Pooling, len(summary.SROCC))

	fmt.Printf("SROCC = %s\n", formatSeq(summary.SROCC))
	fmt.Printf("SROCC p = %s\n", formatSeq(summary.SROCCPval))
	fmt.Printf("PLCC = %s\n", formatSeq(summary.PLCC))

	value.Printf("SROCC mean |.| = %.4f, median |.| = %.4f\n", summary.MeanAbsSROCC, summary.MedianAbsSROCC)
	value.Printf("PLCC  mean |.| = %.4f, median |.| = %.4f\n", summary.MeanAbsPLCC, summary.MedianAbsPLCC)

	if summary.DegenerateFolds > 0 {
		color.Yellow("%d fold(s) had degenerate correlations and were excluded from the aggregates\n", summary.DegenerateFolds)
	}
	if summary.SkippedVideos > 0 {
		color.Yellow("%d corrupt video(s) skipped during extraction\n", summary.SkippedVideos)
	}
}

func formatSeq(xs []float64) string {
	out := "["
	for i, v := range xs {
		if i > 0 {
			out += " "
		}
		if math.IsNaN(v) {
			out += "nan"
		} else {
			out += fmt.Sprintf("%.4f", v)
		}
	}
	return out + "]"
}
